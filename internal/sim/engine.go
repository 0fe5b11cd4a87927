package sim

import (
	"context"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"giantgrab/server/internal/grab"
	"giantgrab/server/internal/physics"
	"giantgrab/server/internal/state"
	"giantgrab/server/internal/world"
	"giantgrab/server/logging"
	"giantgrab/server/logging/gameplay"
)

// Reject codes attached to command outcomes.
const (
	RejectUnknownAvatar = "unknown_avatar"
	RejectUnknownActor  = "unknown_actor"
	RejectBadCommand    = "bad_command"
)

const (
	commandsAppliedMetricKey  = "sim_commands_applied_total"
	commandsRejectedMetricKey = "sim_commands_rejected_total"
	tickMetricKey             = "sim_tick"
)

// EngineConfig bundles subsystem tuning for one world instance.
type EngineConfig struct {
	TickRate int
	World    world.Config
	Physics  physics.Config
}

func (cfg EngineConfig) normalized() EngineConfig {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 30
	}
	return cfg
}

// Outcome reports what the engine did with one applied command. The hub
// routes it back to the issuing session as an ack or reject.
type Outcome struct {
	Command   Command
	OK        bool
	Reject    string
	Placement *world.PlacementResult
	Grab      *grab.Result
}

// Engine owns all mutable world state. Every mutation path locks the
// engine, so handler goroutines may join and disconnect participants
// while the tick loop runs.
type Engine struct {
	mu       sync.Mutex
	cfg      EngineConfig
	dt       float64
	deps     Deps
	registry *state.Registry
	topology *world.Topology
	physics  *physics.Simulator
	grabs    *grab.Coordinator
	tick     uint64
	spawnSeq int
}

// NewEngine constructs a world with the spawn region initialized.
func NewEngine(cfg EngineConfig, deps Deps) *Engine {
	cfg = cfg.normalized()
	registry := state.NewRegistry()
	return &Engine{
		cfg:      cfg,
		dt:       1.0 / float64(cfg.TickRate),
		deps:     deps.normalized(),
		registry: registry,
		topology: world.New(cfg.World),
		physics:  physics.NewSimulator(cfg.Physics),
		grabs:    grab.NewCoordinator(registry),
	}
}

// TickInterval reports the fixed seconds-per-tick the engine integrates at.
func (e *Engine) TickInterval() float64 {
	return e.dt
}

// Tick reports the last completed tick.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// TopologySnapshot returns the current immutable grid snapshot.
func (e *Engine) TopologySnapshot() world.TopologySnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.topology.SnapshotState()
}

// TopologyVersion reports the grid mutation counter.
func (e *Engine) TopologyVersion() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.topology.Version()
}

// AddAvatar registers a PC avatar and places it on a spawn cell.
func (e *Engine) AddAvatar(id string) mgl64.Vec3 {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos := e.nextSpawnLocked()
	e.registry.AddAvatar(&state.AvatarState{
		ID:       id,
		Pos:      pos,
		Grounded: true,
		Mode:     state.ModeActive,
	})
	return pos
}

// AddActor registers a VR actor. Actors have no simulated body.
func (e *Engine) AddActor(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.AddActor(&state.ActorState{ID: id})
}

// RemoveParticipant drops a participant and severs any grab relation it
// takes part in, in either role.
func (e *Engine) RemoveParticipant(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.grabs.ReleaseGrab(id, nil)
	e.grabs.ReleaseHeld(id)
	e.registry.Remove(id)
}

// SetMode flips an avatar between active play and the waiting area.
func (e *Engine) SetMode(id string, mode state.PlayerMode) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	avatar, ok := e.registry.Avatar(id)
	if !ok {
		return false
	}
	avatar.Mode = mode
	return true
}

// Apply executes the staged commands in arrival order.
func (e *Engine) Apply(commands []Command) []Outcome {
	if len(commands) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	outcomes := make([]Outcome, 0, len(commands))
	for _, cmd := range commands {
		outcome := e.applyLocked(cmd)
		if e.deps.Metrics != nil {
			if outcome.OK {
				e.deps.Metrics.Add(commandsAppliedMetricKey, 1)
			} else {
				e.deps.Metrics.Add(commandsRejectedMetricKey, 1)
			}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (e *Engine) applyLocked(cmd Command) Outcome {
	switch cmd.Type {
	case CommandInput:
		return e.applyInputLocked(cmd)
	case CommandHandPose:
		return e.applyHandPoseLocked(cmd)
	case CommandPlaceBlock:
		return e.applyPlaceLocked(cmd)
	case CommandGrab:
		return e.applyGrabLocked(cmd)
	case CommandRelease:
		return e.applyReleaseLocked(cmd)
	case CommandReset:
		return e.applyResetLocked(cmd)
	default:
		return Outcome{Command: cmd, Reject: RejectBadCommand}
	}
}

func (e *Engine) applyInputLocked(cmd Command) Outcome {
	if cmd.Input == nil {
		return Outcome{Command: cmd, Reject: RejectBadCommand}
	}
	avatar, ok := e.registry.Avatar(cmd.ActorID)
	if !ok {
		return Outcome{Command: cmd, Reject: RejectUnknownAvatar}
	}
	// A jump that arrived earlier this tick stays latched until physics
	// consumes it, even if a later input sample reports the key released.
	latched := avatar.Input.Jump
	avatar.Input = cmd.Input.Input
	if latched {
		avatar.Input.Jump = true
	}
	avatar.Yaw = cmd.Input.Yaw
	return Outcome{Command: cmd, OK: true}
}

func (e *Engine) applyHandPoseLocked(cmd Command) Outcome {
	if cmd.HandPose == nil {
		return Outcome{Command: cmd, Reject: RejectBadCommand}
	}
	actor, ok := e.registry.Actor(cmd.ActorID)
	if !ok {
		return Outcome{Command: cmd, Reject: RejectUnknownActor}
	}
	actor.SetPose(cmd.HandPose.Hand, state.HandPose{
		Position:  cmd.HandPose.Position,
		Pinch:     cmd.HandPose.Pinch,
		UpdatedAt: e.deps.Clock.Now(),
	})
	return Outcome{Command: cmd, OK: true}
}

func (e *Engine) applyPlaceLocked(cmd Command) Outcome {
	if cmd.Place == nil {
		return Outcome{Command: cmd, Reject: RejectBadCommand}
	}
	result := e.topology.PlaceBlock(world.PlacementRequest{
		AnchorX:  cmd.Place.AnchorX,
		AnchorZ:  cmd.Place.AnchorZ,
		Size:     cmd.Place.Size,
		Rotation: cmd.Place.Rotation,
		ActorID:  cmd.ActorID,
	})
	outcome := Outcome{Command: cmd, OK: result.OK, Placement: &result}
	if !result.OK {
		outcome.Reject = result.Code
		return outcome
	}
	gameplay.BlockPlaced(context.Background(), e.deps.Publisher, e.tick, e.entityRef(cmd.ActorID), gameplay.PlacementPayload{
		AnchorX:  cmd.Place.AnchorX,
		AnchorZ:  cmd.Place.AnchorZ,
		Size:     string(cmd.Place.Size),
		Rotation: cmd.Place.Rotation,
		Cells:    len(result.Cells),
		Version:  result.Version,
	})
	return outcome
}

func (e *Engine) applyGrabLocked(cmd Command) Outcome {
	if cmd.Grab == nil {
		return Outcome{Command: cmd, Reject: RejectBadCommand}
	}
	result := e.grabs.AttemptGrab(cmd.ActorID, cmd.Grab.Hand, cmd.Grab.HandPosition)
	outcome := Outcome{Command: cmd, OK: result.OK, Grab: &result}
	if !result.OK {
		outcome.Reject = result.Code
		return outcome
	}
	gameplay.AvatarGrabbed(context.Background(), e.deps.Publisher, e.tick,
		logging.EntityRef{ID: cmd.ActorID, Kind: logging.EntityKindActor},
		gameplay.GrabPayload{Hand: string(cmd.Grab.Hand), AvatarID: result.AvatarID})
	return outcome
}

func (e *Engine) applyReleaseLocked(cmd Command) Outcome {
	if cmd.Release == nil {
		return Outcome{Command: cmd, Reject: RejectBadCommand}
	}
	result := e.grabs.ReleaseGrab(cmd.ActorID, cmd.Release.Velocity)
	outcome := Outcome{Command: cmd, OK: result.OK, Grab: &result}
	if !result.OK {
		outcome.Reject = result.Code
		return outcome
	}
	actorRef := logging.EntityRef{ID: cmd.ActorID, Kind: logging.EntityKindActor}
	if cmd.Release.Velocity != nil {
		if avatar, ok := e.registry.Avatar(result.AvatarID); ok {
			gameplay.AvatarThrown(context.Background(), e.deps.Publisher, e.tick, actorRef, gameplay.ThrowPayload{
				AvatarID: result.AvatarID,
				SpeedX:   avatar.Vel[0],
				SpeedY:   avatar.Vel[1],
				SpeedZ:   avatar.Vel[2],
			})
			return outcome
		}
	}
	gameplay.AvatarReleased(context.Background(), e.deps.Publisher, e.tick, actorRef, result.AvatarID)
	return outcome
}

func (e *Engine) applyResetLocked(cmd Command) Outcome {
	for _, rel := range e.grabs.Relations() {
		e.grabs.ReleaseGrab(rel.ActorID, nil)
	}
	e.topology.Reset()
	e.spawnSeq = 0
	for _, avatar := range e.registry.Avatars() {
		if avatar.Mode != state.ModeActive {
			continue
		}
		avatar.Pos = e.nextSpawnLocked()
		avatar.Vel = mgl64.Vec3{}
		avatar.Grounded = true
	}
	gameplay.WorldReset(context.Background(), e.deps.Publisher, e.tick,
		e.entityRef(cmd.ActorID), gameplay.ResetPayload{Version: e.topology.Version()})
	return Outcome{Command: cmd, OK: true}
}

// Step advances the world one fixed tick: physics for every free avatar,
// then the carried-position override for held avatars.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick++
	for _, avatar := range e.registry.Avatars() {
		if _, held := e.grabs.HeldBy(avatar.ID); held {
			continue
		}
		e.physics.StepAvatar(avatar, e.topology, e.dt)
	}
	e.grabs.UpdateCarried()
	if e.deps.Metrics != nil {
		e.deps.Metrics.Store(tickMetricKey, e.tick)
	}
}

// ValidateReportedPosition classifies a client-reported position sample
// against the avatar's authoritative state.
func (e *Engine) ValidateReportedPosition(id string, reported mgl64.Vec3, dt float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	avatar, ok := e.registry.Avatar(id)
	if !ok {
		return false
	}
	if !e.physics.WithinWorldBounds(reported) {
		return false
	}
	return e.physics.PlausibleMove(avatar.Pos, reported, dt)
}

func (e *Engine) entityRef(id string) logging.EntityRef {
	if _, ok := e.registry.Actor(id); ok {
		return logging.EntityRef{ID: id, Kind: logging.EntityKindActor}
	}
	if _, ok := e.registry.Avatar(id); ok {
		return logging.EntityRef{ID: id, Kind: logging.EntityKindAvatar}
	}
	if id == "" {
		return logging.EntityRef{Kind: logging.EntityKindWorld}
	}
	return logging.EntityRef{ID: id, Kind: logging.EntityKindUnknown}
}

// nextSpawnLocked cycles deterministically over spawn cell centers.
func (e *Engine) nextSpawnLocked() mgl64.Vec3 {
	extent := e.topology.Config().SpawnExtent
	side := 2*extent + 1
	slot := e.spawnSeq % (side * side)
	e.spawnSeq++
	coord := world.CellCoord{X: slot%side - extent, Z: slot/side - extent}
	center := coord.Center()
	return mgl64.Vec3{center[0], physics.GroundY, center[2]}
}
