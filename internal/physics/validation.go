package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// The validation predicates classify position samples for an external
// anti-cheat layer. They never mutate simulation state.

// WithinWorldBounds reports whether the sample lies inside the playable
// volume: the world rectangle or the waiting room, at or above the ground.
func (s *Simulator) WithinWorldBounds(pos mgl64.Vec3) bool {
	if pos[1] < GroundY {
		return false
	}
	if s.cfg.WorldBounds.Contains(pos[0], pos[2]) {
		return true
	}
	return s.cfg.WaitingRoom.Contains(pos[0], pos[2])
}

// PlausibleMove reports whether the horizontal distance between two
// samples taken dt seconds apart could have been covered at nominal move
// speed, padded by the fixed tolerance multiplier.
func (s *Simulator) PlausibleMove(from, to mgl64.Vec3, dt float64) bool {
	if dt <= 0 {
		return false
	}
	distance := math.Hypot(to[0]-from[0], to[2]-from[2])
	return distance <= s.cfg.MoveSpeed*SpeedToleranceMultiplier*dt
}
