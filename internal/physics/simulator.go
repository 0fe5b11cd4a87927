package physics

import (
	"math"

	"giantgrab/server/internal/state"
	"giantgrab/server/internal/world"
)

// Simulator advances PC avatars one fixed tick at a time. It mutates
// avatar position, velocity, and the grounded flag in place, and consumes
// the edge-triggered jump input. It holds no references to shared state
// between calls and is driven by the single-writer tick loop.
type Simulator struct {
	cfg Config
}

// NewSimulator constructs a simulator with normalized parameters.
func NewSimulator(cfg Config) *Simulator {
	return &Simulator{cfg: cfg.normalized()}
}

// Config returns the normalized integration parameters.
func (s *Simulator) Config() Config {
	return s.cfg
}

// StepAvatar integrates one avatar over dt seconds against the current
// topology. Waiting-mode avatars skip wall queries entirely and are
// clamped to the holding area instead.
func (s *Simulator) StepAvatar(a *state.AvatarState, topo *world.Topology, dt float64) {
	if a == nil || dt <= 0 {
		return
	}

	dx, dz := s.intentDirection(a)
	// Thrown avatars keep their horizontal launch velocity while airborne.
	if !a.Grounded {
		dx += a.Vel[0]
		dz += a.Vel[2]
	}

	switch a.Mode {
	case state.ModeWaiting:
		a.Pos[0] = world.Clamp(a.Pos[0]+dx*dt, s.cfg.WaitingRoom.MinX, s.cfg.WaitingRoom.MaxX)
		a.Pos[2] = world.Clamp(a.Pos[2]+dz*dt, s.cfg.WaitingRoom.MinZ, s.cfg.WaitingRoom.MaxZ)
	default:
		s.moveWithWalls(a, topo, dx*dt, dz*dt)
		a.Pos[0] = world.Clamp(a.Pos[0], s.cfg.WorldBounds.MinX, s.cfg.WorldBounds.MaxX)
		a.Pos[2] = world.Clamp(a.Pos[2], s.cfg.WorldBounds.MinZ, s.cfg.WorldBounds.MaxZ)
	}

	s.stepVertical(a, dt)
}

// intentDirection rotates the four directional inputs by the avatar's
// look-yaw into a world-space direction scaled to the move speed.
func (s *Simulator) intentDirection(a *state.AvatarState) (float64, float64) {
	sin, cos := math.Sin(a.Yaw), math.Cos(a.Yaw)

	var dx, dz float64
	if a.Input.Forward {
		dx += sin
		dz += cos
	}
	if a.Input.Backward {
		dx -= sin
		dz -= cos
	}
	if a.Input.Right {
		dx += cos
		dz -= sin
	}
	if a.Input.Left {
		dx -= cos
		dz += sin
	}

	length := math.Hypot(dx, dz)
	if length == 0 {
		return 0, 0
	}
	return dx / length * s.cfg.MoveSpeed, dz / length * s.cfg.MoveSpeed
}

// moveWithWalls applies axis-separated integration: the tentative X is
// accepted unless it collides, then the tentative Z independently. Corner
// contact therefore slides along the wall instead of stopping dead.
func (s *Simulator) moveWithWalls(a *state.AvatarState, topo *world.Topology, deltaX, deltaZ float64) {
	newX := a.Pos[0]
	if deltaX != 0 {
		tentative := a.Pos[0] + deltaX
		if !s.CollidesAtPoint(tentative, a.Pos[2], topo) {
			newX = tentative
		}
	}

	newZ := a.Pos[2]
	if deltaZ != 0 {
		tentative := a.Pos[2] + deltaZ
		if !s.CollidesAtPoint(newX, tentative, topo) {
			newZ = tentative
		}
	}

	a.Pos[0] = newX
	a.Pos[2] = newZ
}

// stepVertical applies the jump impulse and discrete gravity integration.
// Jump fires only when grounded with the jump flag set this tick; the flag
// is consumed so a held button does not repeat-jump. Gravity applies on
// the same tick the jump fires, since the avatar is airborne by then.
func (s *Simulator) stepVertical(a *state.AvatarState, dt float64) {
	if a.Grounded && a.Input.Jump {
		a.Vel[1] = s.cfg.JumpSpeed
		a.Grounded = false
	}
	a.Input.Jump = false

	if a.Grounded {
		return
	}

	a.Vel[1] += s.cfg.Gravity * dt
	a.Pos[1] += a.Vel[1] * dt

	if a.Pos[1] <= GroundY {
		a.Pos[1] = GroundY
		a.Vel = [3]float64{}
		a.Grounded = true
	}
}
