// Package cache provides the optional read-through idempotency cache. It
// memoizes transfer responses by idempotency key with a bounded TTL. The
// cache is a latency optimization only: correctness of idempotency rests
// on the unique constraint in transaction_logs, and every hit is
// re-validated against the database record before use.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"wallet-api/internal/domain/models"
	"wallet-api/internal/pkg/logging"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "idempotency:"
	entryTTL  = 24 * time.Hour
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// NewConfigFromEnv creates a cache configuration from environment variables
func NewConfigFromEnv() *Config {
	return &Config{
		Host:     getEnv("CACHE_HOST", "localhost"),
		Port:     getEnvAsInt("CACHE_PORT", 6379),
		Password: getEnv("CACHE_PASSWORD", ""),
		DB:       getEnvAsInt("CACHE_DB", 0),
		Enabled:  getEnv("CACHE_ENABLED", "true") == "true",
	}
}

// entry is the serialized cache value. The transaction log id versions the
// entry so a stale record can be told apart from the canonical row.
type entry struct {
	TransactionLogID string                `json:"transaction_log_id"`
	Transaction      models.TransactionLog `json:"transaction"`
}

// IdempotencyCache wraps a Redis client. All operations are best-effort;
// cache failures are logged and never propagate to the caller.
type IdempotencyCache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection. Returns (nil, nil)
// when the cache is disabled by configuration.
func New(cfg *Config) (*IdempotencyCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &IdempotencyCache{client: client}, nil
}

// Get fetches a memoized transfer response by idempotency key.
func (c *IdempotencyCache) Get(ctx context.Context, idempotencyKey string) (*models.TransactionLog, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+idempotencyKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.Debug("Cache read failed", map[string]interface{}{
				"idempotency_key": idempotencyKey,
				"error":           err.Error(),
			})
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		logging.Debug("Cache entry corrupt, ignoring", map[string]interface{}{
			"idempotency_key": idempotencyKey,
			"error":           err.Error(),
		})
		return nil, false
	}
	return &e.Transaction, true
}

// Set memoizes a transfer response. Only terminal statuses are worth
// storing; PENDING rows change under the caller.
func (c *IdempotencyCache) Set(ctx context.Context, idempotencyKey string, logRow *models.TransactionLog) {
	if logRow.Status == models.StatusPending {
		return
	}

	raw, err := json.Marshal(entry{
		TransactionLogID: logRow.ID.String(),
		Transaction:      *logRow,
	})
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, keyPrefix+idempotencyKey, raw, entryTTL).Err(); err != nil {
		logging.Debug("Cache write failed", map[string]interface{}{
			"idempotency_key": idempotencyKey,
			"error":           err.Error(),
		})
	}
}

// Close releases the underlying client.
func (c *IdempotencyCache) Close() error {
	return c.client.Close()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
