// Package cache memoizes index search results per normalized query.
// Any write through the decorator purges the cache.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

// Backend stores result lists by key. Backends may drop entries at will.
type Backend interface {
	Get(ctx context.Context, key string) ([]ident.ID, bool)
	Set(ctx context.Context, key string, ids []ident.ID)
	Purge(ctx context.Context) error
}

// Counter is satisfied by prometheus.Counter.
type Counter interface {
	Inc()
}

type Index struct {
	inner   index.Index
	backend Backend
	group   singleflight.Group
	logger  *slog.Logger

	hits, misses        atomic.Int64
	hitCount, missCount Counter
}

var (
	_ index.Index   = (*Index)(nil)
	_ index.Wrapper = (*Index)(nil)
)

type Option func(*Index)

// WithCounters mirrors hit and miss counts into external counters.
func WithCounters(hits, misses Counter) Option {
	return func(c *Index) {
		c.hitCount = hits
		c.missCount = misses
	}
}

func Wrap(inner index.Index, backend Backend, opts ...Option) *Index {
	c := &Index{
		inner:   inner,
		backend: backend,
		logger:  slog.Default().With("component", "query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key normalizes query the same way the index reads it. Term order is kept
// because it decides result order.
func Key(query string) string {
	return strings.Join(tokenizer.QueryTerms(query), " ")
}

func (c *Index) Search(ctx context.Context, query string) ([]ident.ID, error) {
	key := Key(query)
	if ids, ok := c.backend.Get(ctx, key); ok {
		c.hit()
		c.logger.Debug("cache hit", "query", query)
		return ids, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if ids, ok := c.backend.Get(ctx, key); ok {
			c.hit()
			return ids, nil
		}
		c.miss()
		ids, err := c.inner.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		c.backend.Set(ctx, key, ids)
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]ident.ID), nil
}

func (c *Index) Write(ctx context.Context, id ident.ID, doc document.Document) error {
	if err := c.inner.Write(ctx, id, doc); err != nil {
		return err
	}
	return c.Invalidate(ctx)
}

// Invalidate drops every cached result.
func (c *Index) Invalidate(ctx context.Context) error {
	if err := c.backend.Purge(ctx); err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	return nil
}

func (c *Index) Unwrap() index.Index { return c.inner }

func (c *Index) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Index) hit() {
	c.hits.Add(1)
	if c.hitCount != nil {
		c.hitCount.Inc()
	}
}

func (c *Index) miss() {
	c.misses.Add(1)
	if c.missCount != nil {
		c.missCount.Inc()
	}
}
