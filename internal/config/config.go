// Wayfarer - Location Exploration Tracking and Achievement Engine
// Copyright 2026 Wayfarer Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wayfarer-app/wayfarer

// Package config loads Wayfarer configuration via Koanf v2 with layered
// sources: built-in defaults, then an optional YAML file, then
// environment variables (highest priority).
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Geo      GeoConfig      `koanf:"geo"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path, or ":memory:" for tests.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`

	// Threads limits DuckDB worker threads; 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`

	// SeedAchievements inserts the shipped achievement catalog at startup
	// (idempotent). The catalog itself remains externally managed.
	SeedAchievements bool `koanf:"seed_achievements"`
}

// GeoConfig holds cell and region-lookup settings.
type GeoConfig struct {
	// FineResolution / CoarseResolution are the H3 resolutions of the
	// two ledger levels. Fine must be strictly finer than coarse.
	FineResolution   int `koanf:"fine_resolution"`
	CoarseResolution int `koanf:"coarse_resolution"`

	// RegionLookupTimeout bounds one point-in-polygon resolve; exceeding
	// it degrades to an unresolved country/region.
	RegionLookupTimeout time.Duration `koanf:"region_lookup_timeout"`
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	// AuthMode is "jwt" (default) or "none" (development only).
	AuthMode  string `koanf:"auth_mode"`
	JWTSecret string `koanf:"jwt_secret"`

	// Per-user request budgets per minute, matching the mobile client's
	// upload cadence.
	IngestPerMinute int `koanf:"ingest_per_minute"`
	BatchPerMinute  int `koanf:"batch_per_minute"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8412,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:             "/data/wayfarer.duckdb",
			MaxMemory:        "1GB",
			Threads:          0,
			SeedAchievements: false,
		},
		Geo: GeoConfig{
			FineResolution:      8,
			CoarseResolution:    6,
			RegionLookupTimeout: 200 * time.Millisecond,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			JWTSecret:       "",
			IngestPerMinute: 120,
			BatchPerMinute:  30,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks configuration invariants after loading.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Geo.FineResolution < 0 || c.Geo.FineResolution > 15 {
		return fmt.Errorf("geo.fine_resolution %d out of range", c.Geo.FineResolution)
	}
	if c.Geo.CoarseResolution < 0 || c.Geo.CoarseResolution > 15 {
		return fmt.Errorf("geo.coarse_resolution %d out of range", c.Geo.CoarseResolution)
	}
	if c.Geo.CoarseResolution >= c.Geo.FineResolution {
		return fmt.Errorf("geo.coarse_resolution %d must be lower than geo.fine_resolution %d",
			c.Geo.CoarseResolution, c.Geo.FineResolution)
	}
	if c.Geo.RegionLookupTimeout <= 0 {
		return fmt.Errorf("geo.region_lookup_timeout must be positive")
	}
	if c.Security.IngestPerMinute <= 0 || c.Security.BatchPerMinute <= 0 {
		return fmt.Errorf("security rate limits must be positive")
	}

	switch strings.ToLower(c.Security.AuthMode) {
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters in jwt mode")
		}
	case "none":
		if strings.EqualFold(c.Server.Environment, "production") {
			return fmt.Errorf("security.auth_mode \"none\" is not allowed in production")
		}
	default:
		return fmt.Errorf("security.auth_mode %q must be \"jwt\" or \"none\"", c.Security.AuthMode)
	}

	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}
