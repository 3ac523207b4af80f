package click

import (
	"context"
	"fmt"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
)

// Store keeps the latest clicked ID per query. Put overwrites.
type Store interface {
	Put(ctx context.Context, query string, id ident.ID) error
	Get(ctx context.Context, query string) (ident.ID, bool, error)
}

type MemoryStore struct {
	mu     sync.RWMutex
	clicks map[string]ident.ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clicks: make(map[string]ident.ID)}
}

func (s *MemoryStore) Put(_ context.Context, query string, id ident.ID) error {
	s.mu.Lock()
	s.clicks[query] = id
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, query string) (ident.ID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.clicks[query]
	return id, ok, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clicks)
}

// RedisHashKey is the hash holding query -> ID fields.
const RedisHashKey = "clicks"

// RedisStore shares click records between service replicas.
type RedisStore struct {
	client *pkgredis.Client
}

func NewRedisStore(client *pkgredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, query string, id ident.ID) error {
	if err := s.client.HSet(ctx, RedisHashKey, query, id.String()); err != nil {
		return fmt.Errorf("storing click for %q: %w", query, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, query string) (ident.ID, bool, error) {
	raw, ok, err := s.client.HGet(ctx, RedisHashKey, query)
	if err != nil {
		return ident.Nil, false, fmt.Errorf("reading click for %q: %w", query, err)
	}
	if !ok {
		return ident.Nil, false, nil
	}
	id, err := ident.Parse(raw)
	if err != nil {
		return ident.Nil, false, fmt.Errorf("click for %q: %w", query, err)
	}
	return id, true, nil
}
