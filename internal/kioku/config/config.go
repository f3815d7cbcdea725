// Package config defines Kioku's runtime configuration: retention and
// context window sizes, cleanup cadence, capacity and memory budgets, and
// the observability surface. Values resolve in precedence order: built-in
// defaults, then an optional YAML file, then KIOKU_-prefixed environment
// variables. The file is checked against an embedded JSON schema before
// decoding; cross-field rules run through Validate once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Kioku/common/environment"
)

// ErrInvalid marks a configuration that failed validation. Callers match
// with errors.Is.
var ErrInvalid = errors.New("invalid config")

// Config holds the conversation engine's runtime settings.
type Config struct {
	// MaxMessagesPerSession is how many messages a session retains before
	// the oldest are dropped. Default: 50.
	MaxMessagesPerSession int

	// MaxContextMessages is how many recent messages feed reference
	// resolution and prompt composition. Default: 10.
	MaxContextMessages int

	// CleanupInterval is how often the background sweeper runs.
	// Default: 30 minutes.
	CleanupInterval time.Duration

	// SessionExpiration is the idle duration after which a session is
	// eligible for eviction. Default: 120 minutes.
	SessionExpiration time.Duration

	// MaxActiveSessions is the capacity of the session store. Default: 1000.
	MaxActiveSessions int

	// EnableAutomaticCleanup starts the background sweeper. Default: true.
	EnableAutomaticCleanup bool

	// MaxMemoryUsageMB is the heap budget that triggers aggressive cleanup
	// and degrades the health verdict. Default: 100.
	MaxMemoryUsageMB int

	// MetricsAddr is the listen address for the observability HTTP server
	// (health, status, Prometheus metrics). Empty disables the server.
	// Default: "".
	MetricsAddr string

	// LogLevel is the slog level: debug, info, warn, or error.
	// Default: "info".
	LogLevel string

	// LogFormat selects the slog handler: text or json. Default: "text".
	LogFormat string
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		MaxMessagesPerSession:  50,
		MaxContextMessages:     10,
		CleanupInterval:        30 * time.Minute,
		SessionExpiration:      120 * time.Minute,
		MaxActiveSessions:      1000,
		EnableAutomaticCleanup: true,
		MaxMemoryUsageMB:       100,
		MetricsAddr:            "",
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

// Validate checks numeric and cross-field rules. It returns the first
// violation found, wrapping ErrInvalid.
func (c *Config) Validate() error {
	if c.MaxMessagesPerSession <= 0 {
		return fmt.Errorf("%w: max messages per session must be positive, got %d", ErrInvalid, c.MaxMessagesPerSession)
	}
	if c.MaxContextMessages <= 0 {
		return fmt.Errorf("%w: max context messages must be positive, got %d", ErrInvalid, c.MaxContextMessages)
	}
	if c.MaxContextMessages > c.MaxMessagesPerSession {
		return fmt.Errorf("%w: max context messages %d exceeds max messages per session %d",
			ErrInvalid, c.MaxContextMessages, c.MaxMessagesPerSession)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("%w: cleanup interval must be positive, got %v", ErrInvalid, c.CleanupInterval)
	}
	if c.SessionExpiration <= 0 {
		return fmt.Errorf("%w: session expiration must be positive, got %v", ErrInvalid, c.SessionExpiration)
	}
	if c.CleanupInterval >= c.SessionExpiration {
		return fmt.Errorf("%w: cleanup interval %v must be shorter than session expiration %v",
			ErrInvalid, c.CleanupInterval, c.SessionExpiration)
	}
	if c.MaxActiveSessions <= 0 {
		return fmt.Errorf("%w: max active sessions must be positive, got %d", ErrInvalid, c.MaxActiveSessions)
	}
	if c.MaxMemoryUsageMB <= 0 {
		return fmt.Errorf("%w: max memory usage must be positive, got %d", ErrInvalid, c.MaxMemoryUsageMB)
	}
	return nil
}

// Load resolves the effective configuration: defaults, then the YAML file
// at path when path is non-empty, then environment overrides, validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a YAML config document over the defaults and validates it.
// Environment overrides are not applied.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv resolves the configuration from defaults and environment
// overrides alone, validated.
func FromEnv() (Config, error) {
	cfg := Default()
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fileConfig is the YAML shape of the config file. Durations are minute
// integers, matching the file convention.
type fileConfig struct {
	MaxMessagesPerSession    int    `yaml:"max_messages_per_session"`
	MaxContextMessages       int    `yaml:"max_context_messages"`
	CleanupIntervalMinutes   int    `yaml:"cleanup_interval_minutes"`
	SessionExpirationMinutes int    `yaml:"session_expiration_minutes"`
	MaxActiveSessions        int    `yaml:"max_active_sessions"`
	EnableAutomaticCleanup   bool   `yaml:"enable_automatic_cleanup"`
	MaxMemoryUsageMB         int    `yaml:"max_memory_usage_mb"`
	MetricsAddr              string `yaml:"metrics_addr"`
	LogLevel                 string `yaml:"log_level"`
	LogFormat                string `yaml:"log_format"`
}

// decode schema-checks data and unmarshals it over cfg. Keys absent from
// the document keep their current values.
func decode(data []byte, cfg *Config) error {
	if err := validateSchema(data); err != nil {
		return err
	}

	raw := fileConfig{
		MaxMessagesPerSession:    cfg.MaxMessagesPerSession,
		MaxContextMessages:       cfg.MaxContextMessages,
		CleanupIntervalMinutes:   int(cfg.CleanupInterval / time.Minute),
		SessionExpirationMinutes: int(cfg.SessionExpiration / time.Minute),
		MaxActiveSessions:        cfg.MaxActiveSessions,
		EnableAutomaticCleanup:   cfg.EnableAutomaticCleanup,
		MaxMemoryUsageMB:         cfg.MaxMemoryUsageMB,
		MetricsAddr:              cfg.MetricsAddr,
		LogLevel:                 cfg.LogLevel,
		LogFormat:                cfg.LogFormat,
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config parse: %w", err)
	}

	cfg.MaxMessagesPerSession = raw.MaxMessagesPerSession
	cfg.MaxContextMessages = raw.MaxContextMessages
	cfg.CleanupInterval = time.Duration(raw.CleanupIntervalMinutes) * time.Minute
	cfg.SessionExpiration = time.Duration(raw.SessionExpirationMinutes) * time.Minute
	cfg.MaxActiveSessions = raw.MaxActiveSessions
	cfg.EnableAutomaticCleanup = raw.EnableAutomaticCleanup
	cfg.MaxMemoryUsageMB = raw.MaxMemoryUsageMB
	cfg.MetricsAddr = raw.MetricsAddr
	cfg.LogLevel = raw.LogLevel
	cfg.LogFormat = raw.LogFormat
	return nil
}

// applyEnv overlays KIOKU_-prefixed environment variables. Durations use
// Go syntax (e.g. "45m"), unlike the minute integers of the file format.
func applyEnv(cfg *Config) {
	cfg.MaxMessagesPerSession = environment.IntOr("KIOKU_MAX_MESSAGES_PER_SESSION", cfg.MaxMessagesPerSession)
	cfg.MaxContextMessages = environment.IntOr("KIOKU_MAX_CONTEXT_MESSAGES", cfg.MaxContextMessages)
	cfg.CleanupInterval = environment.DurationOr("KIOKU_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.SessionExpiration = environment.DurationOr("KIOKU_SESSION_EXPIRATION", cfg.SessionExpiration)
	cfg.MaxActiveSessions = environment.IntOr("KIOKU_MAX_ACTIVE_SESSIONS", cfg.MaxActiveSessions)
	cfg.EnableAutomaticCleanup = environment.BoolOr("KIOKU_ENABLE_AUTOMATIC_CLEANUP", cfg.EnableAutomaticCleanup)
	cfg.MaxMemoryUsageMB = environment.IntOr("KIOKU_MAX_MEMORY_USAGE_MB", cfg.MaxMemoryUsageMB)
	// Setting KIOKU_METRICS_ADDR to the empty string disables the status
	// server even when the config file names an address.
	if v, ok := environment.String("KIOKU_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	cfg.LogLevel = environment.StringOr("KIOKU_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = environment.StringOr("KIOKU_LOG_FORMAT", cfg.LogFormat)
}
