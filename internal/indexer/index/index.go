// Package index defines the search capability shared by the inverted index
// and every decorator layered over it.
package index

import (
	"context"
	"io"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
)

// Index maps free-text queries to document IDs.
type Index interface {
	// Search returns the IDs of documents matching any query term, without
	// duplicates, in the order they were first found. Implementations that
	// partition postings only promise that order within a partition; the
	// sharded index concatenates shards in shard order, so across shards
	// only the ID set matches a single index.
	Search(ctx context.Context, query string) ([]ident.ID, error)
	// Write indexes every term of doc under id. Writing the same pair twice
	// has no further effect.
	Write(ctx context.Context, id ident.ID, doc document.Document) error
}

// Persistent is implemented by indexes whose postings can be saved and
// restored.
type Persistent interface {
	Serialize(w io.Writer) error
	// Deserialize validates the whole stream before applying it. Terms in
	// the stream replace the current posting list of that term; other terms
	// are left alone.
	Deserialize(r io.Reader) error
}

// Stats reports the size of an index.
type Stats interface {
	TermCount() int
}

// Wrapper is implemented by decorators to expose the index they wrap.
type Wrapper interface {
	Unwrap() Index
}

// Find walks the decorator chain starting at ix and returns the first layer
// implementing T.
func Find[T any](ix Index) (T, bool) {
	for ix != nil {
		if t, ok := ix.(T); ok {
			return t, true
		}
		w, ok := ix.(Wrapper)
		if !ok {
			break
		}
		ix = w.Unwrap()
	}
	var zero T
	return zero, false
}
