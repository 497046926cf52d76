// Package config loads gateway configuration. Values layer in order:
// built-in defaults, then an optional YAML file, then environment variables
// (a .env file is honored when present). Environment wins.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBodySizeLimit caps request bodies at 1MB; chat payloads are text.
const DefaultBodySizeLimit = "1M"

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          string `yaml:"port" env:"POLYCHAT_PORT"`
	BodySizeLimit string `yaml:"bodySizeLimit" env:"POLYCHAT_BODY_SIZE_LIMIT"`
}

// StoreConfig selects and configures the conversation store backend.
type StoreConfig struct {
	Type             string        `yaml:"type" env:"POLYCHAT_STORE_TYPE"`
	SQLitePath       string        `yaml:"sqlitePath" env:"POLYCHAT_SQLITE_PATH"`
	PostgresURL      string        `yaml:"postgresUrl" env:"POLYCHAT_POSTGRES_URL"`
	PostgresMaxConns int           `yaml:"postgresMaxConns" env:"POLYCHAT_POSTGRES_MAX_CONNS"`
	RedisAddr        string        `yaml:"redisAddr" env:"POLYCHAT_REDIS_ADDR"`
	RedisPassword    string        `yaml:"redisPassword" env:"POLYCHAT_REDIS_PASSWORD"`
	RedisDB          int           `yaml:"redisDb" env:"POLYCHAT_REDIS_DB"`
	RedisTTL         time.Duration `yaml:"redisTtl" env:"POLYCHAT_REDIS_TTL"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" env:"POLYCHAT_METRICS_ENABLED"`
	Endpoint string `yaml:"endpoint" env:"POLYCHAT_METRICS_ENDPOINT"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" env:"POLYCHAT_LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: DefaultBodySizeLimit,
		},
		Store: StoreConfig{
			Type:             "memory",
			SQLitePath:       "data/polychat.db",
			PostgresMaxConns: 10,
			RedisAddr:        "localhost:6379",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration.
func Load() (*Config, error) {
	// Missing .env is not an error.
	_ = godotenv.Load()

	cfg := Default()

	if path := configFilePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// configFilePath returns the YAML file to load, or "" when none applies.
// POLYCHAT_CONFIG names an explicit file; otherwise config.yaml is picked up
// from the working directory when it exists.
func configFilePath() string {
	if path := os.Getenv("POLYCHAT_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}
