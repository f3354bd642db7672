// Package cache keeps short-lived per-event stats snapshots in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a Redis client with connection pooling and checks
// that it answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		// Fall back to a bare address
		opts = &redis.Options{Addr: url}
	}
	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.MaxRetries = 3

	client := redis.NewClient(opts)
	if err := HealthCheck(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// HealthCheck pings Redis with a short deadline.
func HealthCheck(ctx context.Context, client redis.Cmdable) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// StatsCache implements service.StatsCache on Redis strings.
type StatsCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStatsCache returns a cache whose entries expire after ttl.
func NewStatsCache(client redis.Cmdable, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func statsKey(eventID string) string {
	return fmt.Sprintf("stats:event:%s", eventID)
}

// Get returns the snapshot for eventID; ok is false on a miss.
func (c *StatsCache) Get(ctx context.Context, eventID string) (model.Stats, bool, error) {
	raw, err := c.client.Get(ctx, statsKey(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return model.Stats{}, false, nil
	}
	if err != nil {
		return model.Stats{}, false, fmt.Errorf("get stats snapshot: %w", err)
	}
	var st model.Stats
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return model.Stats{}, false, fmt.Errorf("decode stats snapshot: %w", err)
	}
	return st, true, nil
}

func (c *StatsCache) Set(ctx context.Context, eventID string, st model.Stats) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode stats snapshot: %w", err)
	}
	if err := c.client.Set(ctx, statsKey(eventID), string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("set stats snapshot: %w", err)
	}
	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context, eventID string) error {
	if err := c.client.Del(ctx, statsKey(eventID)).Err(); err != nil {
		return fmt.Errorf("delete stats snapshot: %w", err)
	}
	return nil
}
