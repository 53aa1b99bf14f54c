// Package store provides read-only access to the relational catalog:
// ingredients, ingredient frequencies, labels and precomputed ratings.
// Everything here is read-only from the lookup core's perspective; the
// tables are maintained by an offline ingestion process.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"supplement-scout/internal/cache"
	"supplement-scout/internal/common/logging"
)

// Store wraps a pgx connection pool with an optional cache for raw label
// documents. Concurrent reads require no coordination.
type Store struct {
	pool       *pgxpool.Pool
	labelCache cache.Cache
	cacheTTL   time.Duration
	logger     logging.Logger
}

// Config holds the store configuration
type Config struct {
	DatabaseURL string        `json:"database_url"`
	CacheTTL    time.Duration `json:"cache_ttl"`
}

// New connects to PostgreSQL and verifies the connection. labelCache may be
// nil, in which case label-by-UPC lookups always hit the database.
func New(ctx context.Context, config *Config, labelCache cache.Cache, logger logging.Logger) (*Store, error) {
	if config == nil || config.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	pool, err := pgxpool.New(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool:       pool,
		labelCache: labelCache,
		cacheTTL:   config.CacheTTL,
		logger:     logger.WithFields(logging.Field{Key: "component", Value: "store"}),
	}, nil
}

// NewWithPool wraps an existing pool. Used by tests.
func NewWithPool(pool *pgxpool.Pool, labelCache cache.Cache, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Store{
		pool:       pool,
		labelCache: labelCache,
		cacheTTL:   30 * 24 * time.Hour,
		logger:     logger,
	}
}

// Close releases the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Health verifies the database connection
func (s *Store) Health(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.pool.Ping(pingCtx)
}
