// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration. Command-line flags in cmd/server
// override these values.
type Config struct {
	Port           int      `env:"PROMOTION_ENGINE_PORT" envDefault:"8080"`
	DBPath         string   `env:"PROMOTION_ENGINE_DB" envDefault:"promotion.db"`
	RetirementAge  int      `env:"PROMOTION_ENGINE_RETIREMENT_AGE" envDefault:"60"`
	LadderFile     string   `env:"PROMOTION_ENGINE_LADDER_FILE"`
	RosterFile     string   `env:"PROMOTION_ENGINE_ROSTER_FILE"`
	AllowedOrigins []string `env:"PROMOTION_ENGINE_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`
	LogLevel       string   `env:"PROMOTION_ENGINE_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RetirementAge <= 0 {
		return fmt.Errorf("invalid retirement age %d", c.RetirementAge)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
}
