package world

const (
	DefaultSpawnExtent = 1
	DefaultMaxCells    = 4096
	DefaultWidth       = 400.0
	DefaultHeight      = 400.0
)

// Config captures the tunable shape of a freshly constructed topology.
type Config struct {
	// SpawnExtent is the half-extent of the square spawn region in cells;
	// an extent of 1 seeds a 3x3 spawn area centered on the origin.
	SpawnExtent int     `json:"spawnExtent"`
	MaxCells    int     `json:"maxCells"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	if normalized.SpawnExtent < 0 {
		normalized.SpawnExtent = DefaultSpawnExtent
	}
	if normalized.MaxCells <= 0 {
		normalized.MaxCells = DefaultMaxCells
	}
	if normalized.Width <= 0 {
		normalized.Width = DefaultWidth
	}
	if normalized.Height <= 0 {
		normalized.Height = DefaultHeight
	}
	return normalized
}

// Normalized returns the configuration with defaults applied.
func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		SpawnExtent: DefaultSpawnExtent,
		MaxCells:    DefaultMaxCells,
		Width:       DefaultWidth,
		Height:      DefaultHeight,
	}
}
