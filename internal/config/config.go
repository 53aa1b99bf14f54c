// Package config provides configuration management for the supplement lookup
// core. It handles loading configuration from environment variables with
// sensible defaults and validates the configuration to ensure the process
// starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path (default: stdout)
//   - WORKER_COUNT: Dispatcher worker pool size (default: 8)
//   - JOB_QUEUE_SIZE: Dispatcher queue capacity (default: 256)
//
// Upstream Endpoints:
//   - CATALOG_API_URL: Catalog-data (label) endpoint base URL
//   - CATALOG_API_KEY: API key sent as X-Api-Key on catalog requests
//   - NUTRITION_API_URL: Nutrition-data endpoint base URL
//   - FETCH_TIMEOUT: Per-request timeout (default: 15s)
//   - FETCH_MAX_RETRIES: Retry budget for transient failures (default: 3)
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Database Configuration:
//   - DATABASE_URL: PostgreSQL connection string (required for the store)
//
// Rate Limiting:
//   - RATE_LIMIT_DEFAULT: Outbound calls per window (default: 100)
//   - RATE_LIMIT_WINDOW: Rate limit time window (default: 60s)
//
// Event Delivery:
//   - DELIVERY_MAX_ATTEMPTS: Liveness checks before dropping (default: 5)
//   - DELIVERY_RETRY_DELAY: Delay between liveness checks (default: 1s)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the lookup core. All fields
// correspond to environment variables that can be set to override defaults.
// Load the configuration with Load() and check it with Validate() before use.
type Config struct {
	// Application settings
	LogLevel     string // Logging level (debug, info, warn, error)
	WorkerCount  int    // Dispatcher worker pool size
	JobQueueSize int    // Dispatcher queue capacity

	// Upstream endpoints
	CatalogAPIURL   string        // Catalog-data endpoint base URL
	CatalogAPIKey   string        // API key for the catalog endpoint
	NutritionAPIURL string        // Nutrition-data endpoint base URL
	FetchTimeout    time.Duration // Per-request timeout
	FetchMaxRetries int           // Retry budget for transient failures

	// Redis configuration
	RedisAddress  string // Redis server address (host:port)
	RedisPassword string // Redis authentication password
	RedisDB       int    // Redis database number (0-15)
	RedisPoolSize int    // Redis connection pool size

	// Database configuration
	DatabaseURL string // PostgreSQL connection string

	// Rate limiting configuration
	RateLimitDefault int           // Outbound calls per window
	RateLimitWindow  time.Duration // Rate limiting time window

	// Event delivery configuration
	DeliveryMaxAttempts int           // Liveness checks before dropping an event
	DeliveryRetryDelay  time.Duration // Delay between liveness checks
}

// Load creates a new Config instance with values loaded from environment
// variables. It does not validate the configuration - call Validate() on
// the returned Config before use.
func Load() *Config {
	return &Config{
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		WorkerCount:  getIntEnv("WORKER_COUNT", 8),
		JobQueueSize: getIntEnv("JOB_QUEUE_SIZE", 256),

		CatalogAPIURL:   getEnv("CATALOG_API_URL", "https://api.ods.od.nih.gov/dsld/v9"),
		CatalogAPIKey:   getEnv("CATALOG_API_KEY", ""),
		NutritionAPIURL: getEnv("NUTRITION_API_URL", "https://world.openfoodfacts.net"),
		FetchTimeout:    getDurationEnv("FETCH_TIMEOUT", 15*time.Second),
		FetchMaxRetries: getIntEnv("FETCH_MAX_RETRIES", 3),

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPoolSize: getIntEnv("REDIS_POOL_SIZE", 10),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RateLimitDefault: getIntEnv("RATE_LIMIT_DEFAULT", 100),
		RateLimitWindow:  getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		DeliveryMaxAttempts: getIntEnv("DELIVERY_MAX_ATTEMPTS", 5),
		DeliveryRetryDelay:  getDurationEnv("DELIVERY_RETRY_DELAY", time.Second),
	}
}

// Validate performs validation on the configuration to ensure all required
// fields are present and all values are usable.
func (c *Config) Validate() error {
	if c.CatalogAPIURL == "" {
		return fmt.Errorf("CATALOG_API_URL is required")
	}
	if c.NutritionAPIURL == "" {
		return fmt.Errorf("NUTRITION_API_URL is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.JobQueueSize <= 0 {
		return fmt.Errorf("JOB_QUEUE_SIZE must be positive, got %d", c.JobQueueSize)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %v", c.FetchTimeout)
	}
	if c.FetchMaxRetries < 0 {
		return fmt.Errorf("FETCH_MAX_RETRIES must not be negative, got %d", c.FetchMaxRetries)
	}
	if c.RedisDB < 0 || c.RedisDB > 15 {
		return fmt.Errorf("REDIS_DB must be between 0 and 15, got %d", c.RedisDB)
	}
	if c.RateLimitDefault <= 0 {
		return fmt.Errorf("RATE_LIMIT_DEFAULT must be positive, got %d", c.RateLimitDefault)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.RateLimitWindow)
	}
	if c.DeliveryMaxAttempts <= 0 {
		return fmt.Errorf("DELIVERY_MAX_ATTEMPTS must be positive, got %d", c.DeliveryMaxAttempts)
	}
	return nil
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves an integer environment variable value or returns a
// default value if not set or unparsable.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv retrieves a duration environment variable value (e.g. "60s",
// "1m") or returns a default value if not set or unparsable.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
