// Package store keeps the documents that the index refers to by ID.
package store

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

// Store maps IDs to documents.
type Store interface {
	// Get returns the document stored under id. ok is false when there is
	// none.
	Get(ctx context.Context, id ident.ID) (doc document.Document, ok bool, err error)
	// List returns the documents for ids in the same order, skipping IDs
	// with no document.
	List(ctx context.Context, ids []ident.ID) ([]document.Document, error)
	// Set stores doc under *id, or under a freshly generated ID when id is
	// nil, and returns the ID used. An existing document is replaced.
	Set(ctx context.Context, id *ident.ID, doc document.Document) (ident.ID, error)
	Close() error
}

// Pinger is implemented by stores with a remote dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open builds the backend selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return NewMemory(), nil
	case "badger":
		return OpenBadger(cfg.Store.BadgerDir, false)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func resolveID(id *ident.ID) ident.ID {
	if id == nil {
		return ident.New()
	}
	return *id
}
