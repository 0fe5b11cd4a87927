package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning is the operator-facing knob file. Everything here has a safe
// default so the server boots without a config file.
type Tuning struct {
	ListenAddr string `yaml:"listen_addr"`

	TickRateHz      int `yaml:"tick_rate_hz"`
	CommandCapacity int `yaml:"command_capacity"`
	PerActorLimit   int `yaml:"per_actor_limit"`

	HeartbeatIntervalMs int `yaml:"heartbeat_interval_ms"`
	DisconnectAfterMs   int `yaml:"disconnect_after_ms"`

	World   WorldTuning   `yaml:"world"`
	Journal JournalTuning `yaml:"journal"`
	Logging LoggingTuning `yaml:"logging"`
}

type WorldTuning struct {
	SpawnExtent int `yaml:"spawn_extent"`
	MaxCells    int `yaml:"max_cells"`
}

type JournalTuning struct {
	Path string `yaml:"path"`
}

type LoggingTuning struct {
	Sinks     []string `yaml:"sinks"`
	JSONLPath string   `yaml:"jsonl_path"`
	ZstdLevel int      `yaml:"zstd_level"`
}

func Default() Tuning {
	return Tuning{
		ListenAddr:          ":8080",
		TickRateHz:          30,
		CommandCapacity:     1024,
		PerActorLimit:       32,
		HeartbeatIntervalMs: 2000,
		DisconnectAfterMs:   6000,
		World: WorldTuning{
			SpawnExtent: 1,
			MaxCells:    4096,
		},
		Journal: JournalTuning{
			Path: "data/journal.db",
		},
		Logging: LoggingTuning{
			Sinks:     []string{"console"},
			JSONLPath: "data/events.jsonl.zst",
			ZstdLevel: 3,
		},
	}
}

// Load reads the tuning file, layering it over the defaults. A missing
// file is not an error; the defaults are returned.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t.normalized(), nil
}

func (t Tuning) normalized() Tuning {
	def := Default()
	if t.ListenAddr == "" {
		t.ListenAddr = def.ListenAddr
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = def.TickRateHz
	}
	if t.CommandCapacity <= 0 {
		t.CommandCapacity = def.CommandCapacity
	}
	if t.PerActorLimit <= 0 {
		t.PerActorLimit = def.PerActorLimit
	}
	if t.HeartbeatIntervalMs <= 0 {
		t.HeartbeatIntervalMs = def.HeartbeatIntervalMs
	}
	if t.DisconnectAfterMs <= 0 {
		t.DisconnectAfterMs = def.DisconnectAfterMs
	}
	if t.World.SpawnExtent <= 0 {
		t.World.SpawnExtent = def.World.SpawnExtent
	}
	if t.World.MaxCells <= 0 {
		t.World.MaxCells = def.World.MaxCells
	}
	return t
}

func (t Tuning) HeartbeatInterval() time.Duration {
	return time.Duration(t.HeartbeatIntervalMs) * time.Millisecond
}

func (t Tuning) DisconnectAfter() time.Duration {
	return time.Duration(t.DisconnectAfterMs) * time.Millisecond
}
