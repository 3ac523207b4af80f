// Package click layers click-through recording over an index. Recorded
// clicks are a relevance signal kept for later use; they do not change
// search results.
package click

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

// Clicker records that a result was chosen for a query.
type Clicker interface {
	Click(ctx context.Context, id ident.ID, query string) error
}

// Event describes one recorded click.
type Event struct {
	ID    ident.ID
	Query string
	At    time.Time
}

// Recorder observes clicks after they are stored.
type Recorder interface {
	RecordClick(ctx context.Context, ev Event)
}

// Wrapper forwards Search and Write to the wrapped index and stores the
// most recent click per query.
type Wrapper struct {
	inner    index.Index
	store    Store
	recorder Recorder
	now      func() time.Time
}

var (
	_ index.Index   = (*Wrapper)(nil)
	_ index.Wrapper = (*Wrapper)(nil)
	_ Clicker       = (*Wrapper)(nil)
)

type Option func(*Wrapper)

// WithStore replaces the default in-memory click store.
func WithStore(s Store) Option {
	return func(w *Wrapper) { w.store = s }
}

func WithRecorder(r Recorder) Option {
	return func(w *Wrapper) { w.recorder = r }
}

func Wrap(inner index.Index, opts ...Option) *Wrapper {
	w := &Wrapper{
		inner: inner,
		store: NewMemoryStore(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wrapper) Search(ctx context.Context, query string) ([]ident.ID, error) {
	return w.inner.Search(ctx, query)
}

func (w *Wrapper) Write(ctx context.Context, id ident.ID, doc document.Document) error {
	return w.inner.Write(ctx, id, doc)
}

func (w *Wrapper) Unwrap() index.Index { return w.inner }

// Click stores id as the latest click for the exact query string.
func (w *Wrapper) Click(ctx context.Context, id ident.ID, query string) error {
	if err := w.store.Put(ctx, query, id); err != nil {
		return fmt.Errorf("recording click: %w", err)
	}
	if w.recorder != nil {
		w.recorder.RecordClick(ctx, Event{ID: id, Query: query, At: w.now()})
	}
	return nil
}

// LastClick returns the latest click for query.
func (w *Wrapper) LastClick(ctx context.Context, query string) (ident.ID, bool, error) {
	return w.store.Get(ctx, query)
}

// Find returns the click capability of the first layer in ix's decorator
// chain that has one.
func Find(ix index.Index) (Clicker, bool) {
	return index.Find[Clicker](ix)
}
