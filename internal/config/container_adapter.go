package config

import (
	"github.com/garyjia/travel-approval/internal/container"
	transport "github.com/garyjia/travel-approval/internal/interfaces/http"
)

// ToContainerConfig converts the file-based configuration loaded by viper
// into the container's configuration structure.
func (c *Config) ToContainerConfig(version string) *container.Config {
	metricsPath := ""
	if c.Metrics.Enabled {
		metricsPath = c.Metrics.Path
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Server: transport.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			MetricsPath:     metricsPath,
			Mode:            c.Server.Mode,
		},
		SLA: container.SLAConfig{
			Enabled:       c.SLA.Enabled,
			SweepSchedule: c.SLA.SweepSchedule,
			DueSoonRatio:  c.SLA.DueSoonRatio,
		},
		Policy: container.PolicyConfig{
			Currency: c.Policy.Currency,
			Grades:   c.Policy.Grades,
		},
		Archive: container.ArchiveConfig{
			Enabled: c.Archive.Enabled,
			Dir:     c.Archive.Dir,
		},
		MetricsEnabled: c.Metrics.Enabled,
		Version:        version,
	}
}
