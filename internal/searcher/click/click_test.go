package click

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

type recorded struct {
	events []Event
}

func (r *recorded) RecordClick(_ context.Context, ev Event) {
	r.events = append(r.events, ev)
}

func TestWrapperForwards(t *testing.T) {
	ctx := context.Background()
	inner := index.NewInvertedIndex()
	w := Wrap(inner)

	id := ident.New()
	require.NoError(t, w.Write(ctx, id, document.Document{"title": document.Leaf("Rust crates")}))

	viaWrapper, err := w.Search(ctx, "rust")
	require.NoError(t, err)
	direct, err := inner.Search(ctx, "rust")
	require.NoError(t, err)
	assert.Equal(t, direct, viaWrapper)
	assert.Equal(t, []ident.ID{id}, viaWrapper)
	assert.Same(t, inner, w.Unwrap())
}

func TestClickLastWriteWins(t *testing.T) {
	ctx := context.Background()
	rec := &recorded{}
	w := Wrap(index.NewInvertedIndex(), WithRecorder(rec))
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	first, second := ident.New(), ident.New()
	require.NoError(t, w.Click(ctx, first, "rust crates"))
	require.NoError(t, w.Click(ctx, second, "rust crates"))

	got, ok, err := w.LastClick(ctx, "rust crates")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, got)

	_, ok, err = w.LastClick(ctx, "Rust crates")
	require.NoError(t, err)
	assert.False(t, ok, "queries are stored verbatim")

	require.Len(t, rec.events, 2)
	assert.Equal(t, Event{ID: second, Query: "rust crates", At: fixed}, rec.events[1])
}

func TestClickDoesNotChangeResults(t *testing.T) {
	ctx := context.Background()
	w := Wrap(index.NewInvertedIndex())
	a, b := ident.New(), ident.New()
	require.NoError(t, w.Write(ctx, a, document.Document{"t": document.Leaf("lorem")}))
	require.NoError(t, w.Write(ctx, b, document.Document{"t": document.Leaf("lorem ipsum")}))

	before, err := w.Search(ctx, "lorem")
	require.NoError(t, err)
	require.NoError(t, w.Click(ctx, b, "lorem"))
	after, err := w.Search(ctx, "lorem")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []ident.ID{a, b}, after)
}

type passthrough struct{ index.Index }

func (p passthrough) Unwrap() index.Index { return p.Index }

func TestFindThroughDecorators(t *testing.T) {
	w := Wrap(index.NewInvertedIndex())
	outer := passthrough{passthrough{w}}

	c, ok := Find(outer)
	require.True(t, ok)
	assert.Same(t, w, c)

	_, ok = Find(index.NewInvertedIndex())
	assert.False(t, ok)
}

func TestMemoryStoreLen(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "a", ident.New()))
	require.NoError(t, s.Put(ctx, "a", ident.New()))
	require.NoError(t, s.Put(ctx, "b", ident.New()))
	assert.Equal(t, 2, s.Len())
}
