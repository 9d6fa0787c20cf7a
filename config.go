package conduit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/petrijr/conduit/pkg/patterns"
)

const (
	EnvMaxTransitions       = "CONDUIT_MAX_TRANSITIONS"
	EnvScatterGatherTimeout = "CONDUIT_SCATTER_GATHER_TIMEOUT"
	EnvConcurrency          = "CONDUIT_CONCURRENCY"
	EnvLogLevel             = "CONDUIT_LOG_LEVEL"

	defaultScatterGatherTimeout = "30s"
	defaultLogLevel             = "info"
)

// Config holds the defaults FlowBuilder applies to pattern steps.
type Config struct {
	// MaxTransitions caps the state transitions of a Process Manager.
	MaxTransitions int `toml:"max_transitions"`
	// ScatterGatherTimeout is the default Scatter-Gather deadline.
	ScatterGatherTimeout string `toml:"scatter_gather_timeout"`
	// Concurrency bounds parallel Recipient List and Splitter branches.
	// Zero means unbounded.
	Concurrency int    `toml:"concurrency"`
	LogLevel    string `toml:"log_level"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxTransitions       string
	ScatterGatherTimeout string
	Concurrency          string
	LogLevel             string
}

// DefaultEnv returns the CONDUIT_* variable names.
func DefaultEnv() *Env {
	return &Env{
		MaxTransitions:       EnvMaxTransitions,
		ScatterGatherTimeout: EnvScatterGatherTimeout,
		Concurrency:          EnvConcurrency,
		LogLevel:             EnvLogLevel,
	}
}

// DefaultConfig returns a finalized Config without environment overrides.
func DefaultConfig() Config {
	var c Config
	c.loadDefaults()
	return c
}

// LoadConfig reads a TOML file (if path is not empty), then applies
// defaults and CONDUIT_* overrides.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = ParseConfig(data); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Finalize(DefaultEnv()); err != nil {
		return Config{}, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// ParseConfig decodes a TOML document. The result is not finalized.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxTransitions != 0 {
		c.MaxTransitions = overlay.MaxTransitions
	}
	if overlay.ScatterGatherTimeout != "" {
		c.ScatterGatherTimeout = overlay.ScatterGatherTimeout
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
}

// ScatterGatherTimeoutDuration returns ScatterGatherTimeout as a time.Duration.
func (c *Config) ScatterGatherTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ScatterGatherTimeout)
	return d
}

// Level returns LogLevel as a slog.Level. Unknown values map to Info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NewLogger returns a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.Level()}))
}

func (c *Config) loadDefaults() {
	if c.MaxTransitions == 0 {
		c.MaxTransitions = patterns.DefaultMaxTransitions
	}
	if c.ScatterGatherTimeout == "" {
		c.ScatterGatherTimeout = defaultScatterGatherTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MaxTransitions != "" {
		if v := os.Getenv(env.MaxTransitions); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxTransitions = n
			}
		}
	}
	if env.ScatterGatherTimeout != "" {
		if v := os.Getenv(env.ScatterGatherTimeout); v != "" {
			c.ScatterGatherTimeout = v
		}
	}
	if env.Concurrency != "" {
		if v := os.Getenv(env.Concurrency); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Concurrency = n
			}
		}
	}
	if env.LogLevel != "" {
		if v := os.Getenv(env.LogLevel); v != "" {
			c.LogLevel = v
		}
	}
}

func (c *Config) validate() error {
	if c.MaxTransitions <= 0 {
		return errors.New("max_transitions must be positive")
	}
	d, err := time.ParseDuration(c.ScatterGatherTimeout)
	if err != nil {
		return fmt.Errorf("invalid scatter_gather_timeout: %w", err)
	}
	if d < 0 {
		return errors.New("scatter_gather_timeout must not be negative")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}
