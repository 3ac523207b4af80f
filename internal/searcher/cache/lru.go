package cache

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
)

// LRU is an in-process Backend bounded by entry count.
type LRU struct {
	entries *lru.Cache[string, []ident.ID]
}

func NewLRU(size int) (*LRU, error) {
	entries, err := lru.New[string, []ident.ID](size)
	if err != nil {
		return nil, err
	}
	return &LRU{entries: entries}, nil
}

// Get returns a copy so callers cannot mutate cached results.
func (l *LRU) Get(_ context.Context, key string) ([]ident.ID, bool) {
	ids, ok := l.entries.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(ids), true
}

func (l *LRU) Set(_ context.Context, key string, ids []ident.ID) {
	l.entries.Add(key, slices.Clone(ids))
}

func (l *LRU) Purge(context.Context) error {
	l.entries.Purge()
	return nil
}

func (l *LRU) Len() int { return l.entries.Len() }
