package cli

import (
	"errors"
	"fmt"
	"time"
)

// DefaultInterval is the auto-play pace when neither the flags nor the
// program settings choose one.
const DefaultInterval = 500 * time.Millisecond

// Config holds everything a Runner needs to execute one program file.
type Config struct {
	ProgramPath string

	// Interval overrides the program's auto-play pace when positive.
	Interval time.Duration
	// StepMode waits for Enter before every step instead of auto-playing.
	StepMode bool
	// JournalPath, when set, records runs into a SQLite journal.
	JournalPath string

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProgramPath == "" {
		return nil, errors.New("ProgramPath is a required configuration field and cannot be empty")
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("interval must not be negative, got %s", cfg.Interval)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	return &cfg, nil
}

// PlayInterval is the auto-play pace: the configured interval, else the
// program's own, else DefaultInterval.
func (c *Config) PlayInterval(program time.Duration) time.Duration {
	switch {
	case c.Interval > 0:
		return c.Interval
	case program > 0:
		return program
	}
	return DefaultInterval
}
