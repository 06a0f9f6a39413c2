package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the insight engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (passwords, API
// keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Generator holds the LLM backend used to translate questions into SQL.
	Generator GeneratorConfig `yaml:"generator"`

	// Insight holds limits for the analytics pipeline.
	Insight InsightConfig `yaml:"insight"`
}

// DatabaseConfig holds PostgreSQL database configuration. URL, when set,
// overrides the individual fields.
type DatabaseConfig struct {
	URL            string `yaml:"-" env:"DATABASE_URL"`
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"propfolio"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"propfolio"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// GeneratorConfig holds the external query-generator endpoint settings.
// Provider selects the backend: "openai" or "anthropic".
type GeneratorConfig struct {
	Provider       string `yaml:"provider" env:"GENERATOR_PROVIDER" env-default:"openai"`
	Endpoint       string `yaml:"endpoint" env:"GENERATOR_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model          string `yaml:"model" env:"GENERATOR_MODEL" env-default:"gpt-4o"`
	APIKey         string `yaml:"-" env:"GENERATOR_API_KEY"` // Secret - not in YAML
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"GENERATOR_TIMEOUT_SECONDS" env-default:"30"`
}

// Timeout returns the generator call budget as a duration.
func (c *GeneratorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// InsightConfig bounds the analytics pipeline. MaxResultRows caps generated
// queries only; canned dashboard queries run uncapped because their shape is
// fixed and trusted.
type InsightConfig struct {
	MaxResultRows       int `yaml:"max_result_rows" env:"INSIGHT_MAX_RESULT_ROWS" env-default:"500"`
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"INSIGHT_QUERY_TIMEOUT_SECONDS" env-default:"15"`
	GroundingRowLimit   int `yaml:"grounding_row_limit" env:"INSIGHT_GROUNDING_ROW_LIMIT" env-default:"50"`
	SessionTTLMinutes   int `yaml:"session_ttl_minutes" env:"INSIGHT_SESSION_TTL_MINUTES" env-default:"30"`
}

// QueryTimeout returns the statement execution budget as a duration.
func (c *InsightConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// SessionTTL returns the conversational session inactivity window.
func (c *InsightConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.Insight.MaxResultRows <= 0 {
		return nil, fmt.Errorf("insight.max_result_rows must be positive")
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
