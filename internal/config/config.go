// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend names accepted by STORAGE_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string

	StorageBackend string
	DBPath         string
	Redis          RedisConfig

	AuthJWTSecret string
	AuthJWTIssuer string

	SubscriptionAPIURL string

	JanitorInterval   time.Duration
	ActivityRetention time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendMemory)),
		DBPath:         getEnv("DB_PATH", "./data/parlo.db"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		AuthJWTIssuer:      getEnv("AUTH_JWT_ISSUER", "parlo"),
		SubscriptionAPIURL: getEnv("SUBSCRIPTION_API_URL", ""),
		JanitorInterval:    getEnvDuration("JANITOR_INTERVAL", 15*time.Minute),
		ActivityRetention:  getEnvDuration("ACTIVITY_RETENTION", 24*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.StorageBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, sqlite, redis; got %q", c.StorageBackend)
	}
	if c.StorageBackend == BackendSQLite && c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty with the sqlite backend")
	}
	if c.StorageBackend == BackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR cannot be empty with the redis backend")
	}
	if c.JanitorInterval <= 0 {
		return fmt.Errorf("JANITOR_INTERVAL must be > 0")
	}
	if c.ActivityRetention <= 0 {
		return fmt.Errorf("ACTIVITY_RETENTION must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
