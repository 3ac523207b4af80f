// Package redis wraps go-redis/v9 for the query cache and the click store.
// Every key the Client touches is namespaced under its prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

const (
	dialCheckTimeout = 5 * time.Second
	scanBatch        = 100
)

type Client struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewClient connects and fails unless the server answers PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	c := Wrap(rdb, cfg.KeyPrefix)

	ctx, cancel := context.WithTimeout(ctx, dialCheckTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis at %s: %w", cfg.Addr, err)
	}
	return c, nil
}

// Wrap adopts an existing go-redis client.
func Wrap(rdb redis.UniversalClient, prefix string) *Client {
	return &Client{rdb: rdb, prefix: prefix}
}

// Key returns the namespaced form of key.
func (c *Client) Key(key string) string { return c.prefix + key }

// Get reports found=false for a missing key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return found[[]byte](c.rdb.Get(ctx, c.Key(key)).Bytes())
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.Key(key), value, ttl).Err()
}

func (c *Client) HSet(ctx context.Context, key, field, value string) error {
	return c.rdb.HSet(ctx, c.Key(key), field, value).Err()
}

// HGet reports found=false for a missing hash or field.
func (c *Client) HGet(ctx context.Context, key, field string) (string, bool, error) {
	return found[string](c.rdb.HGet(ctx, c.Key(key), field).Result())
}

// DeletePrefix unlinks every key under the namespaced prefix, a scan page
// at a time, and returns how many were removed.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	pattern := c.Key(prefix) + "*"
	var (
		deleted int64
		cursor  uint64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("scanning %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.rdb.Unlink(ctx, keys...).Result()
			deleted += n
			if err != nil {
				return deleted, fmt.Errorf("unlinking %d keys under %s: %w", len(keys), pattern, err)
			}
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func found[T any](v T, err error) (T, bool, error) {
	switch {
	case errors.Is(err, redis.Nil):
		var zero T
		return zero, false, nil
	case err != nil:
		var zero T
		return zero, false, err
	}
	return v, true, nil
}
