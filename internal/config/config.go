package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/policy"
)

// EnvPrefix prefixes every environment override, e.g. TRAVEL_SERVER_PORT
const EnvPrefix = "TRAVEL"

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	SLA      SLAConfig      `mapstructure:"sla"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// SLAConfig controls the background SLA sweep
type SLAConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	SweepSchedule string  `mapstructure:"sweep_schedule"`
	DueSoonRatio  float64 `mapstructure:"due_soon_ratio"`
}

// PolicyConfig overrides the compiled-in grade limits
type PolicyConfig struct {
	Currency string               `mapstructure:"currency"`
	Grades   []entity.PolicyLimit `mapstructure:"grades"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ArchiveConfig controls where closed workflows' audit workbooks are kept
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// Load reads .env (when present), the YAML file at configPath (when set) and
// TRAVEL_* environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of path unless they are already set
func loadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.mode", "release")

	// Database defaults
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/travel.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// SLA defaults
	v.SetDefault("sla.enabled", true)
	v.SetDefault("sla.sweep_schedule", "@every 5m")
	v.SetDefault("sla.due_soon_ratio", 0.25)

	v.SetDefault("policy.currency", policy.DefaultCurrency)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("archive.enabled", true)
	v.SetDefault("archive.dir", "data/archive")
}

// bindEnvVars maps TRAVEL_SECTION_KEY onto section.key, plus a few short aliases
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("database.path", "TRAVEL_DB_PATH", "TRAVEL_DATABASE_PATH")
	_ = v.BindEnv("database.driver", "TRAVEL_DB_DRIVER", "TRAVEL_DATABASE_DRIVER")
	_ = v.BindEnv("logger.level", "TRAVEL_LOG_LEVEL", "TRAVEL_LOGGER_LEVEL")
	_ = v.BindEnv("server.port", "TRAVEL_SERVER_PORT")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %s or %s, got %q", DriverSQLite, DriverMemory, c.Database.Driver)
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	if c.SLA.DueSoonRatio <= 0 || c.SLA.DueSoonRatio >= 1 {
		return fmt.Errorf("sla.due_soon_ratio must be between 0 and 1, got %v", c.SLA.DueSoonRatio)
	}
	if c.SLA.Enabled {
		if _, err := cron.ParseStandard(c.SLA.SweepSchedule); err != nil {
			return fmt.Errorf("sla.sweep_schedule: %w", err)
		}
	}

	if _, err := policy.NewCatalog(c.Policy.Currency, c.Policy.Grades); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	if c.Archive.Enabled && c.Archive.Dir == "" {
		return fmt.Errorf("archive.dir is required when archiving is enabled")
	}

	return nil
}
