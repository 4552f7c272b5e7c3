// Package container provides dependency injection and lifecycle management
// for the club approval service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/club-approvals/internal/application/service"
	"github.com/garyjia/club-approvals/internal/domain/approval"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Auth     AuthConfig
	Approval ApprovalConfig
	Report   ReportConfig
	Server   ServerConfig
}

// DatabaseConfig holds storage settings for every driver.
type DatabaseConfig struct {
	// Driver is one of sqlite, postgres or memory
	Driver string

	// Path to the SQLite database file
	Path string

	// DSN is the Postgres connection string
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long SQLite waits on a locked database
	BusyTimeout time.Duration
}

// AuthConfig holds bearer-token settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// ApprovalConfig holds the reviewer registry, gate sets and write-retry policy.
type ApprovalConfig struct {
	Registry approval.RegistryConfig

	// Gates overrides the default gate sets; nil keeps the defaults
	Gates service.GateConfig

	Recorder service.RecorderConfig
}

// ReportConfig holds XLSX export settings.
type ReportConfig struct {
	// SheetName prefixes every status sheet of an export
	SheetName string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Mode         string
}

// DefaultConfig returns a Config with sensible defaults.
// Auth.JWTSecret has no default and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            "data/club_approvals.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:   "club-approvals",
			TokenTTL: 12 * time.Hour,
		},
		Approval: ApprovalConfig{
			Registry: approval.DefaultRegistryConfig(),
			Recorder: service.RecorderConfig{
				MaxWriteRetries: 3,
				RetryBackoff:    20 * time.Millisecond,
			},
		},
		Report: ReportConfig{
			SheetName: "Reviews",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Mode:         "release",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver %q is not one of sqlite, postgres, memory", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Approval.Recorder.MaxWriteRetries < 0 {
		return fmt.Errorf("approval.max_write_retries must not be negative")
	}
	if c.Approval.Recorder.RetryBackoff < 0 {
		return fmt.Errorf("approval.retry_backoff must not be negative")
	}

	registry, err := approval.NewRegistry(c.Approval.Registry)
	if err != nil {
		return fmt.Errorf("approval: %w", err)
	}
	for action, roles := range c.Approval.Gates {
		for _, role := range roles {
			if !registry.IsValidRole(role) {
				return fmt.Errorf("approval.gates.%s: unknown role %q", action, role)
			}
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	return nil
}
