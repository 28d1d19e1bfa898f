package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the environment-driven configuration for one harvest run. Site
// descriptors themselves live in the sites package; this covers everything
// around them.
type Config struct {
	Harvester HarvesterConfig
	Sinks     SinkConfig
	Logging   LoggingConfig
}

type HarvesterConfig struct {
	// Query replaces the {query} placeholder in seed URLs.
	Query string

	// OutputDir receives the per-site CSV files and archived pages.
	OutputDir string

	// ArchivePages enables verbatim storage of fetched detail pages.
	ArchivePages bool
}

type SinkConfig struct {
	// DatabaseURL enables the Postgres sink when non-empty.
	DatabaseURL string

	// RedisAddr enables the item event stream when non-empty.
	RedisAddr string

	// MetricsAddr exposes the Prometheus registry over HTTP when non-empty.
	MetricsAddr string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() *Config {
	return &Config{
		Harvester: HarvesterConfig{
			Query:        getEnvOrDefault("HARVEST_QUERY", "solar panel"),
			OutputDir:    getEnvOrDefault("HARVEST_OUTPUT_DIR", "./scraped_data"),
			ArchivePages: getBoolOrDefault("HARVEST_ARCHIVE_PAGES", true),
		},
		Sinks: SinkConfig{
			DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
			RedisAddr:   getEnvOrDefault("REDIS_ADDR", ""),
			MetricsAddr: getEnvOrDefault("METRICS_ADDR", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}
}

func (c *Config) Validate() error {
	if c.Harvester.OutputDir == "" {
		return fmt.Errorf("HARVEST_OUTPUT_DIR cannot be empty")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
