// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - Errors returned by Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
)

// Store drivers understood by the service.
const (
	StoreDriverMemory = "memory"
	StoreDriverSQLite = "sqlite"
)

// Identifier formats understood by the id generator.
const (
	IDFormatUUID   = "uuid"
	IDFormatNanoID = "nanoid"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the entity store backend: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// StorePath is the SQLite database file used when StoreDriver is sqlite.
	StorePath string `koanf:"store_path"`

	// CommandQueueSize bounds the single-writer command queue.
	CommandQueueSize int `koanf:"command_queue_size"`

	// AuditCapacity is how many audit events are retained, newest first.
	AuditCapacity int `koanf:"audit_capacity"`

	// DedupeSize bounds the Idempotency-Key cache for submissions.
	DedupeSize int `koanf:"dedupe_size"`

	// IDFormat picks the identifier generator: uuid or nanoid.
	IDFormat string `koanf:"id_format"`

	// PointsBase, PointsMin and PointsMax define clamp(base - placement, min, max).
	PointsBase int `koanf:"points_base"`
	PointsMin  int `koanf:"points_min"`
	PointsMax  int `koanf:"points_max"`

	// SeedAdminUsername and SeedAdminPassword create the head admin on an empty store.
	SeedAdminUsername string `koanf:"seed_admin_username"`
	SeedAdminPassword string `koanf:"seed_admin_password"`

	// CORSAllowedOrigins is a comma separated list of origins, "*" allows all.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		StoreDriver:         StoreDriverMemory,
		StorePath:           "levelrank.db",
		CommandQueueSize:    1024,
		AuditCapacity:       300,
		DedupeSize:          10_000,
		IDFormat:            IDFormatUUID,
		PointsBase:          101,
		PointsMin:           1,
		PointsMax:           100,
		SeedAdminUsername:   "zmmieh.",
		SeedAdminPassword:   "123456",
		CORSAllowedOrigins:  "*",
		MaxLeaderboardLimit: 100,
	}
}

// AllowedOrigins splits CORSAllowedOrigins into trimmed, non-empty entries.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != StoreDriverMemory && c.StoreDriver != StoreDriverSQLite:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StoreDriverSQLite && strings.TrimSpace(c.StorePath) == "":
		return fmt.Errorf("%w: store_path is required for sqlite", ErrInvalidConfig)
	case c.IDFormat != IDFormatUUID && c.IDFormat != IDFormatNanoID:
		return fmt.Errorf("%w: unknown id_format %q", ErrInvalidConfig, c.IDFormat)
	case c.PointsMin > c.PointsMax:
		return fmt.Errorf("%w: points_min must not exceed points_max", ErrInvalidConfig)
	case c.AuditCapacity <= 0:
		return fmt.Errorf("%w: audit_capacity must be positive", ErrInvalidConfig)
	case c.CommandQueueSize <= 0:
		return fmt.Errorf("%w: command_queue_size must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
