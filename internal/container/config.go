// Package container provides dependency injection and lifecycle management
// for the travel approval service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/sla"
	transport "github.com/garyjia/travel-approval/internal/interfaces/http"
	"github.com/garyjia/travel-approval/internal/infrastructure/worker"
)

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig

	Server transport.ServerConfig

	SLA SLAConfig

	Policy PolicyConfig

	Archive ArchiveConfig

	// MetricsEnabled registers the Prometheus collectors and serves them at
	// Server.MetricsPath
	MetricsEnabled bool

	// Version is reported by the health endpoint
	Version string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is sqlite or memory
	Driver string

	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SLAConfig holds the SLA sweep settings.
type SLAConfig struct {
	Enabled       bool
	SweepSchedule string
	DueSoonRatio  float64
}

// PolicyConfig holds the grade limit overrides.
type PolicyConfig struct {
	Currency string
	Grades   []entity.PolicyLimit
}

// ArchiveConfig controls archiving of closed workflows' audit workbooks.
type ArchiveConfig struct {
	Enabled bool
	Dir     string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       DriverSQLite,
			Path:         "data/travel.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Server: transport.DefaultServerConfig(),
		SLA: SLAConfig{
			Enabled:       true,
			SweepSchedule: worker.DefaultSweepSchedule,
			DueSoonRatio:  sla.DefaultDueSoonRatio,
		},
		MetricsEnabled: true,
		Version:        "dev",
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Archive.Enabled && c.Archive.Dir == "" {
		return fmt.Errorf("archive.dir is required when archiving is enabled")
	}

	if c.SLA.Enabled && c.SLA.SweepSchedule == "" {
		return fmt.Errorf("sla.sweep_schedule is required when the SLA sweep is enabled")
	}

	return nil
}
