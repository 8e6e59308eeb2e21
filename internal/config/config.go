// Package config loads story-memory settings from defaults, an optional
// config file, and STORY_MEMORY_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// InMemoryDB selects the in-memory store instead of SQLite.
const InMemoryDB = ":memory:"

// Config is the full story-memory configuration.
type Config struct {
	DBPath  string        `mapstructure:"db_path"`
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Summary SummaryConfig `mapstructure:"summary"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Source adds file:line to every record.
	Source bool `mapstructure:"source"`
}

// HTTPConfig holds API server settings.
type HTTPConfig struct {
	Listen       string `mapstructure:"listen"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// SummaryConfig holds summarization settings.
type SummaryConfig struct {
	// HistoryLength is the default target length of summarize output.
	HistoryLength int `mapstructure:"history_length"`
}

const (
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
	defaultListen        = "127.0.0.1:8765"
	defaultMaxBodyBytes  = 1 << 20
	defaultHistoryLength = 300
)

// DefaultDBPath is ~/.story-memory/memory.db.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".story-memory", "memory.db")
}

// NewDefaultConfig returns a Config with defaults for all fields.
func NewDefaultConfig() *Config {
	return &Config{
		DBPath: DefaultDBPath(),
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		HTTP: HTTPConfig{
			Listen:       defaultListen,
			MaxBodyBytes: defaultMaxBodyBytes,
		},
		Summary: SummaryConfig{
			HistoryLength: defaultHistoryLength,
		},
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is empty")
	}
	switch c.Log.Level {
	case "info", "debug":
	default:
		return fmt.Errorf("unknown log.level %q (use info or debug)", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json", "pretty":
	default:
		return fmt.Errorf("unknown log.format %q (use text, json or pretty)", c.Log.Format)
	}
	if c.HTTP.Listen == "" {
		return fmt.Errorf("http.listen is empty")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive, got %d", c.HTTP.MaxBodyBytes)
	}
	if c.Summary.HistoryLength <= 0 {
		return fmt.Errorf("summary.history_length must be positive, got %d", c.Summary.HistoryLength)
	}
	return nil
}

// InMemory reports whether the in-memory store is selected.
func (c *Config) InMemory() bool {
	return c.DBPath == InMemoryDB
}
