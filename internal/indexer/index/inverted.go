package index

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/strmatch"
)

// TypoScorer measures how far an indexed term is from a query term.
type TypoScorer func(query, term string) int

type Option func(*InvertedIndex)

// WithTypoScorer replaces strmatch.TypoDistance as the typo measure.
func WithTypoScorer(fn TypoScorer) Option {
	return func(ix *InvertedIndex) {
		if fn != nil {
			ix.typo = fn
		}
	}
}

// WithCompression sets the compression used by Serialize.
func WithCompression(c segment.Compression) Option {
	return func(ix *InvertedIndex) { ix.compression = c }
}

// InvertedIndex keeps terms in insertion order so that a scan, and hence a
// search result, is deterministic. It is not safe for concurrent use.
type InvertedIndex struct {
	entries     []TermEntry
	position    map[string]int
	typo        TypoScorer
	compression segment.Compression
}

func NewInvertedIndex(opts ...Option) *InvertedIndex {
	ix := &InvertedIndex{
		position: make(map[string]int),
		typo:     strmatch.TypoDistance,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func (ix *InvertedIndex) Search(_ context.Context, query string) ([]ident.ID, error) {
	return ix.Match(tokenizer.QueryTerms(query)), nil
}

func (ix *InvertedIndex) Write(_ context.Context, id ident.ID, doc document.Document) error {
	ix.Add(id, tokenizer.Terms(doc))
	return nil
}

// Match returns the union of the posting lists of every indexed term that
// matches one of queryTerms exactly, contains it, or lies within typo range
// of it. queryTerms must already be normalised.
func (ix *InvertedIndex) Match(queryTerms []string) []ident.ID {
	var out []ident.ID
	for _, q := range queryTerms {
		for i := range ix.entries {
			e := &ix.entries[i]
			if ix.matches(q, e.Term) {
				out = append(out, e.Postings...)
			}
		}
	}
	return ident.Dedupe(out)
}

// matches applies the three match rules. The typo threshold is a quarter of
// the query term's byte length, rounded down, so terms shorter than four
// bytes never match by typo.
func (ix *InvertedIndex) matches(q, term string) bool {
	return strmatch.Equal(q, term) ||
		strmatch.PartialMatch(q, term) ||
		ix.typo(q, term) < len(q)/4
}

// Add records id under every term. terms must already be normalised.
func (ix *InvertedIndex) Add(id ident.ID, terms []string) {
	for _, term := range terms {
		if pos, ok := ix.position[term]; ok {
			ix.entries[pos].Postings.Add(id)
			continue
		}
		ix.position[term] = len(ix.entries)
		ix.entries = append(ix.entries, TermEntry{Term: term, Postings: PostingList{id}})
	}
}

// Postings returns a copy of the posting list for term.
func (ix *InvertedIndex) Postings(term string) []ident.ID {
	pos, ok := ix.position[term]
	if !ok {
		return nil
	}
	return slices.Clone(ix.entries[pos].Postings)
}

func (ix *InvertedIndex) TermCount() int {
	return len(ix.entries)
}

// Records copies the index contents in insertion order.
func (ix *InvertedIndex) Records() []segment.Record {
	out := make([]segment.Record, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = segment.Record{Term: e.Term, IDs: slices.Clone(e.Postings)}
	}
	return out
}

// Replace applies records in order. A record sets the whole posting list of
// its term, so when a term repeats the last record wins.
func (ix *InvertedIndex) Replace(records []segment.Record) {
	for _, rec := range records {
		ids := PostingList(ident.Dedupe(slices.Clone(rec.IDs)))
		if pos, ok := ix.position[rec.Term]; ok {
			ix.entries[pos].Postings = ids
			continue
		}
		ix.position[rec.Term] = len(ix.entries)
		ix.entries = append(ix.entries, TermEntry{Term: rec.Term, Postings: ids})
	}
}

func (ix *InvertedIndex) Serialize(w io.Writer) error {
	if err := segment.Encode(w, ix.Records(), ix.compression); err != nil {
		return fmt.Errorf("serializing index: %w", err)
	}
	return nil
}

func (ix *InvertedIndex) Deserialize(r io.Reader) error {
	records, _, err := segment.Decode(r)
	if err != nil {
		return fmt.Errorf("deserializing index: %w", err)
	}
	ix.Replace(records)
	return nil
}
