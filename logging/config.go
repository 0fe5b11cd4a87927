package logging

import "time"

type Config struct {
	EnabledSinks     []string       `yaml:"enabled_sinks"`
	BufferSize       int            `yaml:"buffer_size"`
	MinimumSeverity  Severity       `yaml:"minimum_severity"`
	Fields           map[string]any `yaml:"-"`
	JSONL            JSONLConfig    `yaml:"jsonl"`
	Console          ConsoleConfig  `yaml:"console"`
	DropWarnInterval time.Duration  `yaml:"drop_warn_interval"`
}

type JSONLConfig struct {
	FilePath      string        `yaml:"file_path"`
	ZstdLevel     int           `yaml:"zstd_level"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type ConsoleConfig struct {
	UseColor bool `yaml:"use_color"`
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSONL: JSONLConfig{
			ZstdLevel:     3,
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
