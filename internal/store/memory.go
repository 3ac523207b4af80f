package store

import (
	"context"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
)

// Memory is a map-backed Store.
type Memory struct {
	mu   sync.RWMutex
	docs map[ident.ID]document.Document
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[ident.ID]document.Document)}
}

func (m *Memory) Get(_ context.Context, id ident.ID) (document.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	return doc, ok, nil
}

func (m *Memory) List(_ context.Context, ids []ident.ID) ([]document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]document.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := m.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *Memory) Set(_ context.Context, id *ident.ID, doc document.Document) (ident.ID, error) {
	key := resolveID(id)
	m.mu.Lock()
	m.docs[key] = doc
	m.mu.Unlock()
	return key, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *Memory) Close() error { return nil }
