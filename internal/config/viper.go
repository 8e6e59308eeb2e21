package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STORY_MEMORY_DB_PATH.
const EnvPrefix = "STORY_MEMORY"

// InitViper creates a *viper.Viper with defaults from NewDefaultConfig, the
// optional config file (config.toml, config.yaml, ...) in configDir, and
// environment overrides.
//
// Precedence (highest to lowest):
//  1. CLI flags bound with BindPFlag
//  2. Environment variables (STORY_MEMORY_DB_PATH, STORY_MEMORY_LOG_FORMAT, ...)
//  3. Config file values
//  4. Defaults
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	if configDir != "" {
		v.SetConfigName("config")
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("db_path", d.DBPath)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.source", d.Log.Source)

	v.SetDefault("http.listen", d.HTTP.Listen)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)

	v.SetDefault("summary.history_length", d.Summary.HistoryLength)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// Load is InitViper followed by FromViper.
func Load(configDir string) (*Config, error) {
	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}
