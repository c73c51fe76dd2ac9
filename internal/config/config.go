// Package config loads scoreline's runtime settings through viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for scoreline.
// Values are populated from .scoreline.yaml, SCORELINE_* env vars, and CLI flags.
type Config struct {
	Manifest      string        `mapstructure:"manifest"`
	DefaultSport  string        `mapstructure:"default_sport"`
	TelemetryPath string        `mapstructure:"telemetry_path"`
	Listen        string        `mapstructure:"listen"`
	CORSOrigins   []string      `mapstructure:"cors_origins"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	Verbose       bool          `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("manifest", "scoreline.toml")
	viper.SetDefault("default_sport", "")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("listen", "127.0.0.1:8050")
	viper.SetDefault("cors_origins", []string{"*"})
	viper.SetDefault("session_ttl", 30*time.Minute)
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Manifest == "" {
		return Config{}, fmt.Errorf("config: manifest must not be empty")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("config: session_ttl must be positive, got %s", cfg.SessionTTL)
	}
	return cfg, nil
}
