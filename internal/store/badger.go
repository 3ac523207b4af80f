package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
)

const docKeyPrefix = "doc:"

// Badger is a Store persisted in an embedded BadgerDB. Documents are kept
// as JSON under "doc:" followed by the 16 raw ID bytes.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger routes badger's logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any) {
	l.logger.Error(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Warningf(msg string, args ...any) {
	l.logger.Warn(fmt.Sprintf(msg, args...))
}

// Badger is chatty at info level; demote it.
func (l *badgerLogger) Infof(msg string, args ...any) {
	l.logger.Debug(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Debugf(msg string, args ...any) {
	l.logger.Debug(fmt.Sprintf(msg, args...))
}

// OpenBadger opens (creating if needed) a database in dir, or a purely
// in-memory one when inMemory is set.
func OpenBadger(dir string, inMemory bool) (*Badger, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating badger directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	logger := slog.Default().With("component", "badger-store")
	opts.Logger = &badgerLogger{logger: logger}
	opts.Compression = options.ZSTD

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	return &Badger{db: db, logger: logger}, nil
}

func docKey(id ident.ID) []byte {
	key := make([]byte, 0, len(docKeyPrefix)+len(id))
	key = append(key, docKeyPrefix...)
	return append(key, id[:]...)
}

func (b *Badger) Get(_ context.Context, id ident.ID) (document.Document, bool, error) {
	var doc document.Document
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading document %s: %w", id, err)
	}
	return doc, true, nil
}

func (b *Badger) List(_ context.Context, ids []ident.ID) ([]document.Document, error) {
	out := make([]document.Document, 0, len(ids))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(docKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("reading document %s: %w", id, err)
			}
			var doc document.Document
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return fmt.Errorf("decoding document %s: %w", id, err)
			}
			out = append(out, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Badger) Set(_ context.Context, id *ident.ID, doc document.Document) (ident.ID, error) {
	key := resolveID(id)
	val, err := json.Marshal(doc)
	if err != nil {
		return ident.Nil, fmt.Errorf("encoding document %s: %w", key, err)
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(docKey(key), val)
	}); err != nil {
		return ident.Nil, fmt.Errorf("writing document %s: %w", key, err)
	}
	return key, nil
}

// Count walks the key space and returns the number of stored documents.
func (b *Badger) Count() (int, error) {
	n := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(docKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (b *Badger) Close() error {
	return b.db.Close()
}
