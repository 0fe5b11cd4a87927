package sim

import (
	"sync"
	"time"

	"giantgrab/server/internal/telemetry"
	"giantgrab/server/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to
	// per-actor queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

// LoopConfig tunes the command queue and tick cadence.
type LoopConfig struct {
	CommandCapacity int
	PerActorLimit   int
}

func (cfg LoopConfig) normalized() LoopConfig {
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = 1024
	}
	if cfg.PerActorLimit <= 0 {
		cfg.PerActorLimit = 32
	}
	return cfg
}

// LoopHooks let the hub observe the loop without the loop knowing about
// transports.
type LoopHooks struct {
	AfterStep     func(LoopStepResult)
	OnCommandDrop func(reason string, cmd Command)
}

// LoopStepResult summarizes one completed tick.
type LoopStepResult struct {
	Tick     uint64
	Now      time.Time
	Outcomes []Outcome
	Snapshot Snapshot
	Duration time.Duration
	Budget   time.Duration
}

// Loop stages commands from many producers and drives the engine from a
// single goroutine at the engine's fixed tick rate.
type Loop struct {
	engine  *Engine
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	logger  telemetry.Logger
	metrics telemetry.Metrics

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
}

// NewLoop wraps the engine with a bounded command queue.
func NewLoop(engine *Engine, cfg LoopConfig, hooks LoopHooks) *Loop {
	if engine == nil {
		return nil
	}
	cfg = cfg.normalized()
	return &Loop{
		engine:        engine,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, engine.deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		logger:        engine.deps.Logger,
		metrics:       engine.deps.Metrics,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Engine exposes the wrapped engine for join and query paths.
func (l *Loop) Engine() *Engine {
	if l == nil {
		return nil
	}
	return l.engine
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" && !l.buffer.Push(cmd) {
		reason = CommandRejectQueueFull
		dropCount = l.incrementDropLocked(cmd.ActorID)
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance drains the queue and executes a single tick.
func (l *Loop) Advance(now time.Time) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	clock := l.engine.deps.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	start := clock.Now()
	commands := l.drainCommands()
	outcomes := l.engine.Apply(commands)
	l.engine.Step()
	snapshot := l.engine.Snapshot()
	result := LoopStepResult{
		Tick:     snapshot.Tick,
		Now:      now,
		Outcomes: outcomes,
		Snapshot: snapshot,
		Duration: clock.Now().Sub(start),
		Budget:   l.budget(),
	}
	if l.hooks.AfterStep != nil {
		l.hooks.AfterStep(result)
	}
	return result
}

func (l *Loop) budget() time.Duration {
	return time.Duration(float64(time.Second) * l.engine.TickInterval())
}

// Run drives the fixed-timestep loop until the stop channel closes.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	ticker := time.NewTicker(l.budget())
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.Advance(time.Now())
		}
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	// Log at power-of-two counts so a flooding client cannot flood the log.
	if count > 0 && count&(count-1) == 0 {
		if l.logger != nil {
			l.logger.Printf(
				"[backpressure] dropping command actor=%s type=%s count=%d limit=%d",
				cmd.ActorID,
				cmd.Type,
				count,
				l.config.PerActorLimit,
			)
		}
	}
}
