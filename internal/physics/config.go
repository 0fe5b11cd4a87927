package physics

const (
	// MoveSpeed is the nominal horizontal speed of an avatar in units per second.
	MoveSpeed = 4.0
	// Gravity is the downward acceleration applied to airborne avatars.
	Gravity = -18.0
	// JumpSpeed is the upward velocity impulse applied on a jump.
	JumpSpeed = 6.5
	// AvatarRadius is the collision radius of an avatar against walls.
	AvatarRadius = 0.3
	// GroundY is the ground plane height.
	GroundY = 0.0
	// SpeedToleranceMultiplier pads the nominal speed when classifying
	// whether two position samples could belong to a legitimate move.
	SpeedToleranceMultiplier = 1.5
)

// Rect is an axis-aligned rectangle on the ground plane.
type Rect struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinZ float64 `json:"minZ"`
	MaxZ float64 `json:"maxZ"`
}

// Contains reports whether the point is inside the rectangle.
func (r Rect) Contains(x, z float64) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// Config captures the tunable integration parameters. Zero values fall
// back to the package constants.
type Config struct {
	MoveSpeed    float64
	Gravity      float64
	JumpSpeed    float64
	AvatarRadius float64

	// WorldBounds clamps active avatars after collision resolution.
	WorldBounds Rect
	// WaitingRoom clamps avatars in the holding area instead of wall queries.
	WaitingRoom Rect
}

func (cfg Config) normalized() Config {
	normalized := cfg
	if normalized.MoveSpeed <= 0 {
		normalized.MoveSpeed = MoveSpeed
	}
	if normalized.Gravity == 0 {
		normalized.Gravity = Gravity
	}
	if normalized.JumpSpeed <= 0 {
		normalized.JumpSpeed = JumpSpeed
	}
	if normalized.AvatarRadius <= 0 {
		normalized.AvatarRadius = AvatarRadius
	}
	if normalized.WorldBounds == (Rect{}) {
		normalized.WorldBounds = Rect{MinX: -200, MaxX: 200, MinZ: -200, MaxZ: 200}
	}
	if normalized.WaitingRoom == (Rect{}) {
		normalized.WaitingRoom = Rect{MinX: 300, MaxX: 320, MinZ: -10, MaxZ: 10}
	}
	return normalized
}

// DefaultConfig returns the integration parameters used when none are supplied.
func DefaultConfig() Config {
	return Config{}.normalized()
}
