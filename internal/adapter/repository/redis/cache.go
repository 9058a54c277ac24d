package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

const scanBatchSize = 100

// Cache implements usecase.Cache using Redis. A cache miss is returned
// as a nil value with no error.
type Cache struct {
	client  *redis.Client
	prefix  string
	metrics *metrics.Metrics
}

// NewCache creates a new Cache. Metrics may be nil.
func NewCache(client *redis.Client, m *metrics.Metrics) *Cache {
	return &Cache{
		client:  client,
		prefix:  "cache:",
		metrics: m,
	}
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.record("get")

	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.recordError("get")
		return nil, err
	}

	return data, nil
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.record("set")

	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.recordError("set")
		return err
	}

	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.record("del")

	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.recordError("del")
		return err
	}

	return nil
}

// DeleteByPrefix removes every key under the given prefix. DEL does not
// expand patterns, so matching keys are collected via SCAN first.
func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) error {
	c.record("del")

	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+prefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.recordError("del")
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.recordError("del")
		return err
	}

	return nil
}

func (c *Cache) record(op string) {
	if c.metrics != nil {
		c.metrics.RedisOperations.WithLabelValues(op).Inc()
	}
}

func (c *Cache) recordError(op string) {
	if c.metrics != nil {
		c.metrics.RedisErrors.WithLabelValues(op).Inc()
	}
}
