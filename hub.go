package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"giantgrab/server/internal/journal"
	"giantgrab/server/internal/net/intake"
	"giantgrab/server/internal/net/proto"
	"giantgrab/server/internal/sim"
	"giantgrab/server/internal/state"
	"giantgrab/server/internal/telemetry"
	"giantgrab/server/logging"
	"giantgrab/server/logging/lifecycle"
)

// HubConfig wires the simulation, liveness policy, and collaborators.
type HubConfig struct {
	Engine            sim.EngineConfig
	Loop              sim.LoopConfig
	HeartbeatInterval time.Duration
	DisconnectAfter   time.Duration

	Logger    telemetry.Logger
	Metrics   *logging.Metrics
	Clock     logging.Clock
	Publisher logging.Publisher
	Journal   *journal.Journal
}

// DefaultHubConfig returns the stock tick rate and heartbeat policy.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		Engine:            sim.EngineConfig{TickRate: defaultTickRate},
		HeartbeatInterval: defaultHeartbeatInterval,
		DisconnectAfter:   defaultDisconnectAfter,
	}
}

func (cfg HubConfig) normalized() HubConfig {
	if cfg.Engine.TickRate <= 0 {
		cfg.Engine.TickRate = defaultTickRate
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.DisconnectAfter <= 0 {
		cfg.DisconnectAfter = 3 * cfg.HeartbeatInterval
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &logging.Metrics{}
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.SystemClock{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	return cfg
}

// Hub owns the participant sessions and drives the simulation loop. All
// world mutation flows through the loop; the hub's own mutex only guards
// the session table.
type Hub struct {
	cfg       HubConfig
	loop      *sim.Loop
	logger    telemetry.Logger
	clock     logging.Clock
	publisher logging.Publisher
	metrics   *logging.Metrics
	journal   *journal.Journal

	mu       sync.Mutex
	sessions map[string]*Session
	nextID   atomic.Uint64
}

// NewHub constructs the engine, loop, and an empty session table.
func NewHub(cfg HubConfig) *Hub {
	cfg = cfg.normalized()
	h := &Hub{
		cfg:       cfg,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		journal:   cfg.Journal,
		sessions:  make(map[string]*Session),
	}

	engine := sim.NewEngine(cfg.Engine, sim.Deps{
		Logger:    cfg.Logger,
		Metrics:   telemetry.WrapMetrics(cfg.Metrics),
		Clock:     cfg.Clock,
		Publisher: cfg.Publisher,
	})
	h.loop = sim.NewLoop(engine, cfg.Loop, sim.LoopHooks{
		AfterStep: h.afterStep,
	})
	return h
}

// Loop exposes the simulation loop for staging and tests.
func (h *Hub) Loop() *sim.Loop {
	return h.loop
}

// Tick reports the last completed simulation tick.
func (h *Hub) Tick() uint64 {
	return h.loop.Engine().Tick()
}

// TopologyState builds the current state and topology payloads for a
// freshly attached connection.
func (h *Hub) TopologyState() (proto.StateMessageV1, proto.TopologyMessageV1) {
	engine := h.loop.Engine()
	snapshot := engine.Snapshot()
	stateMsg := proto.StateMessageV1{
		Tick:            snapshot.Tick,
		ServerTime:      h.clock.Now().UnixMilli(),
		Avatars:         snapshot.Avatars,
		Actors:          snapshot.Actors,
		TopologyVersion: snapshot.TopologyVersion,
	}
	topologyMsg := proto.TopologyMessageV1{Topology: engine.TopologySnapshot()}
	return stateMsg, topologyMsg
}

// TickRate reports the configured simulation rate in ticks per second.
func (h *Hub) TickRate() int {
	return h.cfg.Engine.TickRate
}

// HeartbeatInterval reports how often clients are expected to ping.
func (h *Hub) HeartbeatInterval() time.Duration {
	return h.cfg.HeartbeatInterval
}

// RunSimulation drives the fixed-rate tick loop until stop closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	h.loop.Run(stop)
}

// Join registers a new participant and returns its identity, session
// token, and the initial world view.
func (h *Hub) Join(kindRaw string) (proto.JoinResponseV1, error) {
	kind, ok := state.ParseKind(kindRaw)
	if !ok {
		return proto.JoinResponseV1{}, fmt.Errorf("unknown participant kind %q", kindRaw)
	}

	engine := h.loop.Engine()
	id := fmt.Sprintf("%s-%d", kind, h.nextID.Add(1))
	session := &Session{
		id:            id,
		token:         uuid.NewString(),
		kind:          kind,
		lastHeartbeat: h.clock.Now(),
	}

	var spawn [3]float64
	switch kind {
	case state.KindPC:
		pos := engine.AddAvatar(id)
		spawn = [3]float64{pos.X(), pos.Y(), pos.Z()}
	case state.KindVR:
		engine.AddActor(id)
	}

	h.mu.Lock()
	h.sessions[id] = session
	h.mu.Unlock()

	snapshot := engine.Snapshot()
	topology := engine.TopologySnapshot()

	lifecycle.ParticipantJoined(context.Background(), h.publisher, snapshot.Tick,
		logging.EntityRef{ID: id, Kind: participantEntityKind(kind)},
		lifecycle.JoinedPayload{Kind: string(kind), SpawnX: spawn[0], SpawnZ: spawn[2]})

	return proto.JoinResponseV1{
		ID:       id,
		Token:    session.token,
		Kind:     string(kind),
		Spawn:    spawn,
		TickRate: h.cfg.Engine.TickRate,
		Avatars:  snapshot.Avatars,
		Actors:   snapshot.Actors,
		Topology: topology,
	}, nil
}

// Subscribe attaches a connection to an existing session after checking
// its token. Any previous connection for the session is closed.
func (h *Hub) Subscribe(id, token string, conn *websocket.Conn) (*Session, bool) {
	h.mu.Lock()
	session, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok || session.token != token {
		return nil, false
	}

	if previous := session.attach(conn, h.clock.Now()); previous != nil {
		previous.Close()
	}
	return session, true
}

// HasParticipant reports whether a session exists for the identifier.
func (h *Hub) HasParticipant(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[id]
	return ok
}

// SetMode flips a PC avatar between active play and the waiting area.
func (h *Hub) SetMode(id, token string, mode state.PlayerMode) bool {
	h.mu.Lock()
	session, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok || session.token != token {
		return false
	}
	return h.loop.Engine().SetMode(id, mode)
}

// StageCommand validates and enqueues one client message for the next tick.
func (h *Hub) StageCommand(id string, msg proto.ClientMessage) (sim.Command, bool, string) {
	engine := h.loop.Engine()
	return intake.StageClientCommand(intake.CommandContext{
		Loop:           h.loop,
		HasParticipant: h.HasParticipant,
		Tick:           engine.Tick,
		Now:            h.clock.Now,
	}, id, msg)
}

// UpdateHeartbeat records liveness for a session and returns the measured
// round trip time.
func (h *Hub) UpdateHeartbeat(id string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	session, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok {
		return 0, false
	}
	return session.markHeartbeat(receivedAt, clientSent), true
}

// Disconnect removes a participant, releasing anything it holds or is held
// by, and closes its connection.
func (h *Hub) Disconnect(id, reason string) {
	h.mu.Lock()
	session, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	engine := h.loop.Engine()
	engine.RemoveParticipant(id)
	if conn := session.detach(); conn != nil {
		conn.Close()
	}

	lifecycle.ParticipantDisconnected(context.Background(), h.publisher, engine.Tick(),
		logging.EntityRef{ID: id, Kind: participantEntityKind(session.kind)},
		lifecycle.DisconnectedPayload{Reason: reason})
}

// DiagnosticsSnapshot exposes per-session liveness for the diagnostics
// endpoint.
func (h *Hub) DiagnosticsSnapshot() []SessionDiagnostics {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.mu.Unlock()

	out := make([]SessionDiagnostics, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, session.diagnostics())
	}
	return out
}

// TelemetrySnapshot copies the metric counters for the diagnostics endpoint.
func (h *Hub) TelemetrySnapshot() map[string]uint64 {
	return h.metrics.Snapshot()
}

// RecentPlacements reads the newest persisted placements, newest first.
func (h *Hub) RecentPlacements(ctx context.Context, limit int) ([]journal.PlacementRecord, error) {
	if h.journal == nil {
		return nil, nil
	}
	return h.journal.RecentPlacements(ctx, limit)
}

// JournalDiagnostics reports writer queue depth and drops, or zeros when
// journaling is disabled.
func (h *Hub) JournalDiagnostics() (depth int, dropped uint64) {
	if h.journal == nil {
		return 0, 0
	}
	return h.journal.Depth(), h.journal.Dropped()
}

// afterStep runs on the loop goroutine once per tick: journal topology
// mutations, prune stale sessions, and broadcast the snapshot.
func (h *Hub) afterStep(result sim.LoopStepResult) {
	h.journalOutcomes(result)
	h.pruneStale(result.Now)
	h.broadcast(result)
}

func (h *Hub) journalOutcomes(result sim.LoopStepResult) {
	if h.journal == nil {
		return
	}
	for _, outcome := range result.Outcomes {
		if !outcome.OK {
			continue
		}
		switch {
		case outcome.Placement != nil && outcome.Placement.OK:
			place := outcome.Command.Place
			if place == nil {
				continue
			}
			h.journal.RecordPlacement(journal.PlacementRecord{
				Tick:     result.Tick,
				ActorID:  outcome.Command.ActorID,
				AnchorX:  place.AnchorX,
				AnchorZ:  place.AnchorZ,
				Size:     string(place.Size),
				Rotation: place.Rotation,
				Cells:    len(outcome.Placement.Cells),
				Version:  outcome.Placement.Version,
			})
		case outcome.Command.Type == sim.CommandReset:
			h.journal.RecordReset(journal.ResetRecord{
				Tick:    result.Tick,
				ActorID: outcome.Command.ActorID,
				Version: result.Snapshot.TopologyVersion,
			})
		}
	}
}

func (h *Hub) pruneStale(now time.Time) {
	h.mu.Lock()
	stale := make([]string, 0)
	for id, session := range h.sessions {
		if session.heartbeatAge(now) > h.cfg.DisconnectAfter {
			stale = append(stale, id)
		}
	}
	h.mu.Unlock()

	for _, id := range stale {
		if h.logger != nil {
			h.logger.Printf("disconnecting %s due to heartbeat timeout", id)
		}
		h.Disconnect(id, "heartbeat_timeout")
	}
}

func (h *Hub) broadcast(result sim.LoopStepResult) {
	stateData, err := proto.EncodeStateMessageV1(proto.StateMessageV1{
		Tick:            result.Tick,
		ServerTime:      result.Now.UnixMilli(),
		Avatars:         result.Snapshot.Avatars,
		Actors:          result.Snapshot.Actors,
		TopologyVersion: result.Snapshot.TopologyVersion,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("failed to marshal state message: %v", err)
		}
		return
	}

	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.mu.Unlock()

	var topologyData []byte
	for _, session := range sessions {
		if !session.connected() {
			continue
		}

		if session.NeedsTopology(result.Snapshot.TopologyVersion) {
			if topologyData == nil {
				topologyData, err = proto.EncodeTopologyMessageV1(proto.TopologyMessageV1{
					Topology: h.loop.Engine().TopologySnapshot(),
				})
				if err != nil {
					if h.logger != nil {
						h.logger.Printf("failed to marshal topology message: %v", err)
					}
					topologyData = nil
				}
			}
			if topologyData != nil {
				if err := session.WriteMessage(topologyData); err != nil {
					h.dropSession(session.id, err)
					continue
				}
			}
		}

		if err := session.WriteMessage(stateData); err != nil {
			h.dropSession(session.id, err)
		}
	}
}

func (h *Hub) dropSession(id string, err error) {
	if h.logger != nil {
		h.logger.Printf("failed to send update to %s: %v", id, err)
	}
	h.Disconnect(id, "write_failure")
}

func participantEntityKind(kind state.ParticipantKind) logging.EntityKind {
	if kind == state.KindVR {
		return logging.EntityKindActor
	}
	return logging.EntityKindAvatar
}
