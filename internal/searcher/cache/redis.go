package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const keyPrefix = "search:"

// Redis is a Backend shared across replicas. Failures are logged and
// treated as misses; a circuit breaker stops hammering an unhealthy server.
type Redis struct {
	client  *pkgredis.Client
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewRedis(client *pkgredis.Client, ttl time.Duration, breaker *resilience.CircuitBreaker) *Redis {
	return &Redis{
		client:  client,
		ttl:     ttl,
		breaker: breaker,
		logger:  slog.Default().With("component", "query-cache-redis"),
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]ident.ID, bool) {
	data, err := resilience.Call(r.breaker, func() ([]byte, error) {
		data, _, err := r.client.Get(ctx, redisKey(key))
		return data, err
	})
	if err != nil {
		r.logger.Error("cache get failed", "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	var ids []ident.ID
	if err := json.Unmarshal(data, &ids); err != nil {
		r.logger.Error("cache unmarshal failed", "error", err)
		return nil, false
	}
	return ids, true
}

func (r *Redis) Set(ctx context.Context, key string, ids []ident.ID) {
	if ids == nil {
		ids = []ident.ID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		r.logger.Error("cache marshal failed", "error", err)
		return
	}
	if err := r.breaker.Execute(func() error {
		return r.client.Set(ctx, redisKey(key), data, r.ttl)
	}); err != nil {
		r.logger.Error("cache set failed", "error", err)
	}
}

func (r *Redis) Purge(ctx context.Context) error {
	return r.breaker.Execute(func() error {
		deleted, err := r.client.DeletePrefix(ctx, keyPrefix)
		if err != nil {
			return err
		}
		r.logger.Debug("cache invalidate", "keys_deleted", deleted)
		return nil
	})
}

// redisKey hashes the normalized query so arbitrary user input never lands
// in a Redis key.
func redisKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
