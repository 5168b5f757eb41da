// Package config loads application configuration from the environment.
// main calls godotenv.Load first so a local .env file feeds the same path.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
	Pipeline      PipelineConfig
	Collaborators CollaboratorsConfig
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
}

// DatabaseConfig configures the downstream PostgreSQL store. When disabled
// the pipeline runs memory-only.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// ObservabilityConfig toggles metrics exposure.
type ObservabilityConfig struct {
	MetricsEnabled bool
}

// ProfilingConfig toggles the pprof sidecar server.
type ProfilingConfig struct {
	Enabled bool
	Port    int
}

// PipelineConfig configures ingestion.
type PipelineConfig struct {
	// SourcePath, when set, is ingested once at startup.
	SourcePath string
}

// CollaboratorsConfig configures the external invoice services.
type CollaboratorsConfig struct {
	RetrieverURL string
	ExtractorURL string
	Timeout      time.Duration
	MaxRetries   int
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               envString("SERVER_HOST", "0.0.0.0"),
			Port:               envInt("SERVER_PORT", 8080),
			RateLimitPerSecond: envInt("RATE_LIMIT_PER_SECOND", 50),
			RateLimitBurst:     envInt("RATE_LIMIT_BURST", 100),
		},
		Database: DatabaseConfig{
			Enabled:  envBool("DB_ENABLED", true),
			Host:     envString("DB_HOST", "localhost"),
			Port:     envInt("DB_PORT", 5432),
			User:     envString("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     envString("DB_NAME", "ivy_ledger"),
			SSLMode:  envString("DB_SSLMODE", "disable"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: envBool("METRICS_ENABLED", true),
		},
		Profiling: ProfilingConfig{
			Enabled: envBool("PPROF_ENABLED", false),
			Port:    envInt("PPROF_PORT", 6060),
		},
		Pipeline: PipelineConfig{
			SourcePath: os.Getenv("PIPELINE_SOURCE_PATH"),
		},
		Collaborators: CollaboratorsConfig{
			RetrieverURL: os.Getenv("INVOICE_RETRIEVER_URL"),
			ExtractorURL: os.Getenv("INVOICE_EXTRACTOR_URL"),
			Timeout:      envDuration("COLLABORATOR_TIMEOUT", 60*time.Second),
			MaxRetries:   envInt("COLLABORATOR_MAX_RETRIES", 2),
		},
	}

	if cfg.Database.Enabled && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when the database is enabled")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
