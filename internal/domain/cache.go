package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. Quote results are
// cached by profile fingerprint; counters track quote volume in a window.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetQuote retrieves a cached quote by profile fingerprint.
	GetQuote(ctx context.Context, fingerprint string) (*Quote, error)

	// SetQuote caches a quote under its profile fingerprint.
	SetQuote(ctx context.Context, fingerprint string, quote *Quote, ttl time.Duration) error

	// IncrementCounter atomically increments a windowed counter and
	// returns the new value. Used for quote-volume stats.
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `json:"type" koanf:"type"`

	// Local LRU cache settings (Community tier)
	LocalMaxSize int           `json:"localMaxSize" koanf:"localmaxsize"`
	LocalTTL     time.Duration `json:"localTtl" koanf:"localttl"`

	// Redis settings (Pro tier)
	RedisAddr     string `json:"redisAddr" koanf:"redisaddr"`
	RedisPassword string `json:"redisPassword" koanf:"redispassword"`
	RedisDB       int    `json:"redisDb" koanf:"redisdb"`

	// Two-phase settings
	EnableTwoPhase bool `json:"enableTwoPhase" koanf:"enabletwophase"` // If true, check local first, then Redis

	// QuoteTTL is how long a computed quote stays valid in cache.
	QuoteTTL time.Duration `json:"quoteTtl" koanf:"quotettl"`
}
