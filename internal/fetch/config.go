package fetch

import (
	"fmt"
	"time"
)

// Config holds the fetch client configuration
type Config struct {
	Timeout        time.Duration `json:"timeout"`
	MaxRetries     int           `json:"max_retries"`
	RetryDelay     time.Duration `json:"retry_delay"`
	MaxConnections int           `json:"max_connections"`
	KeepAlive      time.Duration `json:"keep_alive"`

	// RateLimit caps outbound calls per RateWindow. Callers over the cap
	// block until a slot frees.
	RateLimit  int           `json:"rate_limit"`
	RateWindow time.Duration `json:"rate_window"`

	// CacheTTL is how long successful responses stay retrievable.
	CacheTTL time.Duration `json:"cache_ttl"`

	// CatalogHost is the host that requires the API key header.
	CatalogHost string `json:"catalog_host"`
	// CatalogAPIKey is sent as X-Api-Key on requests to CatalogHost.
	CatalogAPIKey string `json:"-"`
}

// DefaultConfig returns the default fetch client configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:        15 * time.Second,
		MaxRetries:     3,
		RetryDelay:     500 * time.Millisecond,
		MaxConnections: 100,
		KeepAlive:      90 * time.Second,
		RateLimit:      100,
		RateWindow:     time.Minute,
		CacheTTL:       30 * 24 * time.Hour,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive, got %v", c.RetryDelay)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("max connections must be positive, got %d", c.MaxConnections)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit)
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("rate window must be positive, got %v", c.RateWindow)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %v", c.CacheTTL)
	}
	return nil
}
