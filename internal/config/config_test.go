package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/travel.db", cfg.Database.Path)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.True(t, cfg.SLA.Enabled)
	assert.Equal(t, "@every 5m", cfg.SLA.SweepSchedule)
	assert.InDelta(t, 0.25, cfg.SLA.DueSoonRatio, 1e-9)
	assert.Equal(t, "INR", cfg.Policy.Currency)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, "data/archive", cfg.Archive.Dir)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 5s
database:
  driver: memory
logger:
  level: debug
  format: console
sla:
  sweep_schedule: "*/10 * * * *"
  due_soon_ratio: 0.5
policy:
  currency: USD
  grades:
    - grade: L2
      flight_class: PREMIUM_ECONOMY
      hotel_cap_per_night: 150
      per_diem: 60
      trip_budget_cap: 3000
metrics:
  enabled: false
`)

	t.Setenv("TRAVEL_SERVER_PORT", "7070")
	t.Setenv("TRAVEL_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "*/10 * * * *", cfg.SLA.SweepSchedule)
	assert.InDelta(t, 0.5, cfg.SLA.DueSoonRatio, 1e-9)
	assert.False(t, cfg.Metrics.Enabled)

	require.Len(t, cfg.Policy.Grades, 1)
	assert.Equal(t, "USD", cfg.Policy.Currency)
	assert.Equal(t, entity.PolicyLimit{
		Grade:            "L2",
		FlightClass:      entity.FlightPremiumEconomy,
		HotelCapPerNight: 150,
		PerDiem:          60,
		TripBudgetCap:    3000,
	}, cfg.Policy.Grades[0])
}

func TestLoad_DBPathAlias(t *testing.T) {
	t.Setenv("TRAVEL_DB_PATH", "/tmp/other.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080, Mode: "release"},
			Database: DatabaseConfig{Driver: DriverSQLite, Path: "data/travel.db"},
			Logger:   LoggerConfig{Level: "info", Format: "json"},
			SLA:      SLAConfig{Enabled: true, SweepSchedule: "@every 5m", DueSoonRatio: 0.25},
			Metrics:  MetricsConfig{Enabled: true, Path: "/metrics"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown mode", func(c *Config) { c.Server.Mode = "prod" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }},
		{"unknown log format", func(c *Config) { c.Logger.Format = "xml" }},
		{"ratio zero", func(c *Config) { c.SLA.DueSoonRatio = 0 }},
		{"ratio one", func(c *Config) { c.SLA.DueSoonRatio = 1 }},
		{"bad schedule", func(c *Config) { c.SLA.SweepSchedule = "every five minutes" }},
		{"bad grade override", func(c *Config) {
			c.Policy.Grades = []entity.PolicyLimit{{Grade: "L9", FlightClass: "ROCKET"}}
		}},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }},
		{"archive without dir", func(c *Config) { c.Archive = ArchiveConfig{Enabled: true} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_DisabledSweepIgnoresSchedule(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 8080, Mode: "debug"},
		Database: DatabaseConfig{Driver: DriverMemory},
		Logger:   LoggerConfig{Format: "console"},
		SLA:      SLAConfig{Enabled: false, DueSoonRatio: 0.25},
	}
	assert.NoError(t, cfg.Validate())
}

func TestToContainerConfig(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Host: "127.0.0.1", Port: 9000, Mode: "release", ShutdownTimeout: time.Second},
		Database: DatabaseConfig{Driver: DriverMemory},
		SLA:      SLAConfig{Enabled: true, SweepSchedule: "@every 1m", DueSoonRatio: 0.3},
		Policy:   PolicyConfig{Currency: "EUR"},
		Metrics:  MetricsConfig{Enabled: false, Path: "/metrics"},
		Archive:  ArchiveConfig{Enabled: true, Dir: "/var/archive"},
	}

	out := cfg.ToContainerConfig("1.2.3")
	assert.True(t, out.Archive.Enabled)
	assert.Equal(t, "/var/archive", out.Archive.Dir)
	assert.Equal(t, "memory", out.Database.Driver)
	assert.Equal(t, "127.0.0.1", out.Server.Host)
	assert.Equal(t, 9000, out.Server.Port)
	assert.Empty(t, out.Server.MetricsPath, "metrics disabled")
	assert.False(t, out.MetricsEnabled)
	assert.Equal(t, "@every 1m", out.SLA.SweepSchedule)
	assert.Equal(t, "EUR", out.Policy.Currency)
	assert.Equal(t, "1.2.3", out.Version)
	require.NoError(t, out.Validate())
}
