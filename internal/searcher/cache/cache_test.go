package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

type countingIndex struct {
	index.Index
	searches atomic.Int64
	gate     chan struct{}
	err      error
}

func (c *countingIndex) Search(ctx context.Context, query string) ([]ident.ID, error) {
	c.searches.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.Index.Search(ctx, query)
}

type counter struct{ n int }

func (c *counter) Inc() { c.n++ }

func newCached(t *testing.T) (*Index, *countingIndex) {
	t.Helper()
	backend, err := NewLRU(16)
	require.NoError(t, err)
	inner := &countingIndex{Index: index.NewInvertedIndex()}
	return Wrap(inner, backend), inner
}

func TestKey(t *testing.T) {
	assert.Equal(t, "rust crates", Key("  Rust  CRATES rust "))
	assert.NotEqual(t, Key("rust crates"), Key("crates rust"))
	assert.Equal(t, "", Key("   "))
}

func TestSearchIsCached(t *testing.T) {
	ctx := context.Background()
	hits, misses := &counter{}, &counter{}
	backend, err := NewLRU(16)
	require.NoError(t, err)
	inner := &countingIndex{Index: index.NewInvertedIndex()}
	c := Wrap(inner, backend, WithCounters(hits, misses))

	id := ident.New()
	require.NoError(t, c.Write(ctx, id, document.Document{"t": document.Leaf("lorem ipsum")}))

	first, err := c.Search(ctx, "lorem")
	require.NoError(t, err)
	second, err := c.Search(ctx, "LOREM")
	require.NoError(t, err)

	assert.Equal(t, []ident.ID{id}, first)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, inner.searches.Load())
	h, m := c.Stats()
	assert.EqualValues(t, 1, h)
	assert.EqualValues(t, 1, m)
	assert.Equal(t, 1, hits.n)
	assert.Equal(t, 1, misses.n)
}

func TestWriteInvalidates(t *testing.T) {
	ctx := context.Background()
	c, inner := newCached(t)

	a, b := ident.New(), ident.New()
	require.NoError(t, c.Write(ctx, a, document.Document{"t": document.Leaf("lorem")}))
	got, err := c.Search(ctx, "lorem")
	require.NoError(t, err)
	assert.Equal(t, []ident.ID{a}, got)

	require.NoError(t, c.Write(ctx, b, document.Document{"t": document.Leaf("lorem")}))
	got, err = c.Search(ctx, "lorem")
	require.NoError(t, err)
	assert.Equal(t, []ident.ID{a, b}, got)
	assert.EqualValues(t, 2, inner.searches.Load())
}

func TestErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	c, inner := newCached(t)
	inner.err = errors.New("shard unavailable")

	_, err := c.Search(ctx, "lorem")
	require.Error(t, err)

	inner.err = nil
	_, err = c.Search(ctx, "lorem")
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.searches.Load())
}

func TestConcurrentMissesCollapse(t *testing.T) {
	ctx := context.Background()
	c, inner := newCached(t)
	inner.gate = make(chan struct{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			_, err := c.Search(ctx, "lorem")
			assert.NoError(t, err)
		})
	}
	require.Eventually(t, func() bool { return inner.searches.Load() == 1 }, time.Second, time.Millisecond)
	close(inner.gate)
	wg.Wait()
	assert.EqualValues(t, 1, inner.searches.Load())
}

func TestLRUReturnsCopies(t *testing.T) {
	ctx := context.Background()
	l, err := NewLRU(2)
	require.NoError(t, err)

	ids := []ident.ID{ident.New()}
	l.Set(ctx, "k", ids)
	got, ok := l.Get(ctx, "k")
	require.True(t, ok)
	got[0] = ident.Nil

	again, _ := l.Get(ctx, "k")
	assert.Equal(t, ids, again)

	l.Set(ctx, "a", nil)
	l.Set(ctx, "b", nil)
	_, ok = l.Get(ctx, "k")
	assert.False(t, ok, "oldest entry evicted")
	require.NoError(t, l.Purge(ctx))
	assert.Equal(t, 0, l.Len())
}

func TestNewLRURejectsBadSize(t *testing.T) {
	_, err := NewLRU(0)
	assert.Error(t, err)
}

func TestRedisKeyIsHashed(t *testing.T) {
	k := redisKey("rust crates")
	assert.Equal(t, keyPrefix, k[:len(keyPrefix)])
	assert.Len(t, k, len(keyPrefix)+32)
	assert.NotEqual(t, k, redisKey("crates rust"))
}
