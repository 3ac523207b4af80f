// Package service ties the index to the document store. It owns the locks
// that keep the two consistent: a write holds both exclusively, a search
// holds both shared.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/click"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

// Snapshotter persists the index. *indexer.Engine implements it.
type Snapshotter interface {
	MarkDirty()
	Save(ctx context.Context) error
}

// SearchTracker observes completed searches.
type SearchTracker interface {
	TrackSearch(ctx context.Context, query string, results int)
}

// Result is the outcome of a search.
type Result struct {
	Query     string              `json:"query"`
	IDs       []ident.ID          `json:"ids"`
	Documents []document.Document `json:"documents"`
}

type Service struct {
	index    index.Index
	store    store.Store
	snapshot Snapshotter
	tracker  SearchTracker

	indexMu sync.RWMutex
	storeMu sync.RWMutex
	logger  *slog.Logger
}

type Option func(*Service)

func WithSnapshotter(s Snapshotter) Option {
	return func(svc *Service) { svc.snapshot = s }
}

func WithSearchTracker(t SearchTracker) Option {
	return func(svc *Service) { svc.tracker = t }
}

func New(ix index.Index, st store.Store, opts ...Option) *Service {
	s := &Service{
		index:  ix,
		store:  st,
		logger: slog.Default().With("component", "service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns the IDs matching query and the stored documents for them,
// in the same order. IDs without a stored document are omitted from
// Documents.
func (s *Service) Search(ctx context.Context, query string) (*Result, error) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	s.storeMu.RLock()
	defer s.storeMu.RUnlock()

	sctx, span := tracing.Start(ctx, "index.search")
	ids, err := s.index.Search(sctx, query)
	span.SetAttr("ids", len(ids))
	span.End()
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	sctx, span = tracing.Start(ctx, "store.list")
	docs, err := s.store.List(sctx, ids)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	if ids == nil {
		ids = []ident.ID{}
	}
	if docs == nil {
		docs = []document.Document{}
	}
	if s.tracker != nil {
		s.tracker.TrackSearch(ctx, query, len(ids))
	}
	return &Result{Query: query, IDs: ids, Documents: docs}, nil
}

// Write stores doc, under id or a fresh ID when id is nil, and indexes it.
func (s *Service) Write(ctx context.Context, id *ident.ID, doc document.Document) (ident.ID, error) {
	if doc == nil {
		return ident.Nil, apperrors.New(apperrors.ErrInvalidDocument, 0, "item is required")
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	sctx, span := tracing.Start(ctx, "store.set")
	stored, err := s.store.Set(sctx, id, doc)
	span.End()
	if err != nil {
		return ident.Nil, fmt.Errorf("storing document: %w", err)
	}
	sctx, span = tracing.Start(ctx, "index.write")
	err = s.index.Write(sctx, stored, doc)
	span.End()
	if err != nil {
		return ident.Nil, fmt.Errorf("indexing document %s: %w", stored, err)
	}
	if s.snapshot != nil {
		s.snapshot.MarkDirty()
	}
	logger.FromContext(ctx).Debug("document written", "doc_id", stored)
	return stored, nil
}

// Click records that id was chosen for query.
func (s *Service) Click(ctx context.Context, id ident.ID, query string) error {
	clicker, ok := click.Find(s.index)
	if !ok {
		return apperrors.New(apperrors.ErrNotConfigured, 0, "click tracking is not enabled")
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if err := clicker.Click(ctx, id, query); err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("click recorded", "doc_id", id, "query", query)
	return nil
}

// Snapshot saves the index now.
func (s *Service) Snapshot(ctx context.Context) error {
	if s.snapshot == nil {
		return apperrors.New(apperrors.ErrNotConfigured, 0, "snapshots are not configured")
	}
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	return s.snapshot.Save(ctx)
}

// Index exposes the decorated index for read-only inspection.
func (s *Service) Index() index.Index { return s.index }

// Ping reports whether the document store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
