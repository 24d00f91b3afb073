package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/cohortlens/insights-engine/pkg/models"
	"github.com/cohortlens/insights-engine/pkg/sql"
)

// DefaultConfigFile is read by Load when no path is given.
const DefaultConfigFile = "config.yaml"

// Config holds all configuration for insights-engine.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Denominator rewriting (cohort calendar and watched literals)
	Denominators DenominatorConfig `yaml:"denominators"`

	// Batch checks
	Workers WorkerConfig `yaml:"workers"`

	// Optional audit store (PostgreSQL). Disabled when Database.Enabled is false.
	Database DatabaseConfig `yaml:"database"`

	MCP MCPConfig `yaml:"mcp"`
}

// DenominatorConfig holds the values rendered into the denominator subqueries
// and the literal sets the validator treats as hardcoded denominators.
type DenominatorConfig struct {
	Cohort           string `yaml:"cohort" env:"DENOMINATOR_COHORT" env-default:"March 2025"`
	ExcludedUserIDs  []int  `yaml:"excluded_user_ids" env:"DENOMINATOR_EXCLUDED_USER_IDS" env-default:"129,5,240,326,324,325"`
	NonClassWeekdays []int  `yaml:"non_class_weekdays" env:"DENOMINATOR_NON_CLASS_WEEKDAYS" env-default:"4,5"`

	ClassDayLiterals      []int `yaml:"class_day_literals" env:"DENOMINATOR_CLASS_DAY_LITERALS" env-default:"24,25,26,27,28,32"`
	ActiveBuilderLiterals []int `yaml:"active_builder_literals" env:"DENOMINATOR_ACTIVE_BUILDER_LITERALS" env-default:"32,75,76,77,78,79,80"`
	TotalTaskLiterals     []int `yaml:"total_task_literals" env:"DENOMINATOR_TOTAL_TASK_LITERALS" env-default:"107,143,224"`
}

// WorkerConfig bounds concurrent work in batch checks.
type WorkerConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" env:"WORKERS_MAX_CONCURRENT" env-default:"8"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Enabled        bool   `yaml:"enabled" env:"PGENABLED" env-default:"false"`
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"insights"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"insights_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// MCPConfig controls the MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"false"`
}

// Load reads configuration from path (config.yaml when empty) with
// environment variable overrides. When the default file does not exist,
// configuration comes from the environment alone.
func Load(path, version string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return LoadFromEnv(version)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg := &Config{Version: version}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv reads configuration from environment variables only.
func LoadFromEnv(version string) (*Config, error) {
	cfg := &Config{Version: version}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for _, day := range c.Denominators.NonClassWeekdays {
		if day < 0 || day > 6 {
			return fmt.Errorf("non_class_weekdays: %d is not a day of week (0-6)", day)
		}
	}
	if c.Workers.MaxConcurrent < 1 {
		return fmt.Errorf("workers.max_concurrent must be at least 1, got %d", c.Workers.MaxConcurrent)
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

// ToOptions converts the denominator configuration into validator options.
func (d DenominatorConfig) ToOptions() sql.DenominatorOptions {
	return sql.DenominatorOptions{
		Cohort:           d.Cohort,
		ExcludedUserIDs:  d.ExcludedUserIDs,
		NonClassWeekdays: d.NonClassWeekdays,
		WatchedLiterals: map[models.DenominatorFamily][]int{
			models.DenominatorClassDays:      d.ClassDayLiterals,
			models.DenominatorActiveBuilders: d.ActiveBuilderLiterals,
			models.DenominatorTotalTasks:     d.TotalTaskLiterals,
		},
	}
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		resolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the database as a postgres:// URL, the form golang-migrate expects.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(resolveHostForDocker(c.Host), strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

var (
	inDockerOnce sync.Once
	inDocker     bool
)

// resolveHostForDocker maps loopback hosts to host.docker.internal when the
// engine runs inside a container, so a database on the host stays reachable.
func resolveHostForDocker(host string) string {
	inDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inDocker = err == nil
	})
	if inDocker && (host == "localhost" || host == "127.0.0.1") {
		return "host.docker.internal"
	}
	return host
}
