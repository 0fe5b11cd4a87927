// Package app wires configuration, logging, persistence, and the hub into
// a runnable server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	server "giantgrab/server"
	"giantgrab/server/internal/journal"
	servernet "giantgrab/server/internal/net"
	"giantgrab/server/internal/sim"
	"giantgrab/server/internal/telemetry"
	"giantgrab/server/internal/tuning"
	"giantgrab/server/internal/world"
	"giantgrab/server/logging"
	loggingsinks "giantgrab/server/logging/sinks"
)

// Config selects the tuning file; everything else derives from it.
type Config struct {
	TuningPath string
	Logger     logrus.FieldLogger
}

// Run starts the server and blocks until the HTTP listener fails or ctx is
// cancelled.
func Run(ctx context.Context, cfg Config) error {
	baseLogger := cfg.Logger
	if baseLogger == nil {
		logger := logrus.New()
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		baseLogger = logger
	}

	tun, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	if addr := os.Getenv("GIANTGRAB_LISTEN_ADDR"); addr != "" {
		tun.ListenAddr = addr
	}
	if raw := os.Getenv("GIANTGRAB_TICK_RATE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			tun.TickRateHz = value
		} else {
			baseLogger.Warnf("invalid GIANTGRAB_TICK_RATE=%q", raw)
		}
	}

	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = tun.Logging.Sinks
	logConfig.JSONL.FilePath = tun.Logging.JSONLPath
	logConfig.JSONL.ZstdLevel = tun.Logging.ZstdLevel

	var namedSinks []logging.NamedSink
	if logConfig.HasSink("console") {
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "console",
			Sink: loggingsinks.NewConsoleSink(baseLogger, logConfig.Console),
		})
	}
	if logConfig.HasSink("jsonl") {
		jsonlSink, err := loggingsinks.NewJSONLZstdSink(logConfig.JSONL)
		if err != nil {
			return fmt.Errorf("open jsonl sink: %w", err)
		}
		namedSinks = append(namedSinks, logging.NamedSink{Name: "jsonl", Sink: jsonlSink})
	}

	router := logging.NewRouter(logging.SystemClock{}, logConfig, baseLogger, namedSinks)
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			baseLogger.Warnf("failed to close logging router: %v", cerr)
		}
	}()

	jnl, err := journal.Open(tun.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if cerr := jnl.Close(); cerr != nil {
			baseLogger.Warnf("failed to close journal: %v", cerr)
		}
	}()

	telemetryLogger := telemetry.WrapLogrus(baseLogger)
	metrics := &logging.Metrics{}

	hubCfg := server.DefaultHubConfig()
	hubCfg.Engine = sim.EngineConfig{
		TickRate: tun.TickRateHz,
		World: world.Config{
			SpawnExtent: tun.World.SpawnExtent,
			MaxCells:    tun.World.MaxCells,
		},
	}
	hubCfg.Loop = sim.LoopConfig{
		CommandCapacity: tun.CommandCapacity,
		PerActorLimit:   tun.PerActorLimit,
	}
	hubCfg.HeartbeatInterval = tun.HeartbeatInterval()
	hubCfg.DisconnectAfter = tun.DisconnectAfter()
	hubCfg.Logger = telemetryLogger
	hubCfg.Metrics = metrics
	hubCfg.Publisher = router
	hubCfg.Journal = jnl

	hub := server.NewHub(hubCfg)
	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		Logger: telemetryLogger,
	})

	srv := &http.Server{Addr: tun.ListenAddr, Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	baseLogger.Infof("server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
