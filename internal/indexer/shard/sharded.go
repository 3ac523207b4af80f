// Package shard partitions the inverted index by term. Each shard owns the
// posting lists of the terms hashing to it and has its own lock, so writes to
// different shards never contend and a shard only ever has one writer.
package shard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

type shard struct {
	mu sync.RWMutex
	ix *index.InvertedIndex
}

// Index is a term-sharded index.Index. It is safe for concurrent use.
type Index struct {
	shards      []*shard
	compression segment.Compression
	logger      *slog.Logger
}

// New creates numShards empty shards. opts configure every shard's
// InvertedIndex; compression applies to Serialize.
func New(numShards int, compression segment.Compression, opts ...index.Option) (*Index, error) {
	if numShards < 1 {
		return nil, fmt.Errorf("shard count must be positive, got %d", numShards)
	}
	s := &Index{
		shards:      make([]*shard, numShards),
		compression: compression,
		logger:      slog.Default().With("component", "shard-index"),
	}
	for i := range s.shards {
		s.shards[i] = &shard{ix: index.NewInvertedIndex(opts...)}
	}
	s.logger.Info("sharded index ready", "num_shards", numShards)
	return s, nil
}

func (s *Index) NumShards() int {
	return len(s.shards)
}

// ShardFor returns the shard owning term.
func (s *Index) ShardFor(term string) int {
	return int(xxhash.Sum64String(term) % uint64(len(s.shards)))
}

func (s *Index) Write(_ context.Context, id ident.ID, doc document.Document) error {
	groups := make(map[int][]string)
	for _, term := range tokenizer.Terms(doc) {
		sid := s.ShardFor(term)
		groups[sid] = append(groups[sid], term)
	}
	for sid := range s.shards {
		terms, ok := groups[sid]
		if !ok {
			continue
		}
		sh := s.shards[sid]
		sh.mu.Lock()
		sh.ix.Add(id, terms)
		sh.mu.Unlock()
	}
	return nil
}

// Search matches the query against every shard in parallel. Results are
// concatenated in shard order and then deduplicated.
func (s *Index) Search(ctx context.Context, query string) ([]ident.ID, error) {
	terms := tokenizer.QueryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	results := make([][]ident.ID, len(s.shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, sh := range s.shards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sh.mu.RLock()
			results[i] = sh.ix.Match(terms)
			sh.mu.RUnlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("searching shards: %w", err)
	}
	return ident.Dedupe(slices.Concat(results...)), nil
}

func (s *Index) TermCount() int {
	total := 0
	for _, n := range s.ShardTermCounts() {
		total += n
	}
	return total
}

// ShardTermCounts returns the number of terms held by each shard.
func (s *Index) ShardTermCounts() []int {
	counts := make([]int, len(s.shards))
	for i, sh := range s.shards {
		sh.mu.RLock()
		counts[i] = sh.ix.TermCount()
		sh.mu.RUnlock()
	}
	return counts
}

// Records copies every shard's contents, shard by shard.
func (s *Index) Records() []segment.Record {
	var out []segment.Record
	for _, sh := range s.shards {
		sh.mu.RLock()
		out = append(out, sh.ix.Records()...)
		sh.mu.RUnlock()
	}
	return out
}

// Postings returns the posting list of a single term.
func (s *Index) Postings(term string) []ident.ID {
	sh := s.shards[s.ShardFor(term)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.ix.Postings(term)
}

// Serialize writes a consistent snapshot: every shard is read-locked until
// the records are copied.
func (s *Index) Serialize(w io.Writer) error {
	for _, sh := range s.shards {
		sh.mu.RLock()
	}
	var records []segment.Record
	for _, sh := range s.shards {
		records = append(records, sh.ix.Records()...)
	}
	for _, sh := range s.shards {
		sh.mu.RUnlock()
	}

	if err := segment.Encode(w, records, s.compression); err != nil {
		return fmt.Errorf("serializing sharded index: %w", err)
	}
	return nil
}

// Deserialize decodes the whole stream before taking any shard lock. The
// stream need not come from an index with the same shard count.
func (s *Index) Deserialize(r io.Reader) error {
	records, header, err := segment.Decode(r)
	if err != nil {
		return fmt.Errorf("deserializing sharded index: %w", err)
	}
	s.Load(records)
	s.logger.Info("snapshot applied",
		"records", len(records),
		"compression", header.Compression.String(),
		"created_at", header.CreatedAt,
	)
	return nil
}

// Load routes records to their shards and applies them in stream order.
func (s *Index) Load(records []segment.Record) {
	groups := make([][]segment.Record, len(s.shards))
	for _, rec := range records {
		sid := s.ShardFor(rec.Term)
		groups[sid] = append(groups[sid], rec)
	}
	for sid, group := range groups {
		if len(group) == 0 {
			continue
		}
		sh := s.shards[sid]
		sh.mu.Lock()
		sh.ix.Replace(group)
		sh.mu.Unlock()
	}
}
