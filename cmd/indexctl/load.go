package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/store"
)

const maxLineBytes = 16 << 20

func newLoadCmd(g *globals) *cobra.Command {
	var (
		workers   int
		withStore bool
	)

	cmd := &cobra.Command{
		Use:   "load FILE...",
		Short: "Index JSON Lines documents into the snapshot",
		Long: `Each line is either a write event {"id": "...", "item": {...}} or a bare
document object, which is given a fresh ID. Documents are added to the
existing snapshot, which is then saved.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, g, args, workers, withStore)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Number of indexing workers")
	cmd.Flags().BoolVar(&withStore, "store", true, "Also write documents to the configured document store")
	return cmd
}

type loadStats struct {
	docs   atomic.Int64
	failed atomic.Int64
}

func runLoad(cmd *cobra.Command, g *globals, files []string, workers int, withStore bool) error {
	ctx := cmd.Context()
	ix, engine, err := g.openIndex(ctx)
	if err != nil {
		return err
	}

	var docs store.Store
	if withStore && g.cfg.Store.Backend != "memory" {
		docs, err = store.Open(ctx, g.cfg)
		if err != nil {
			return fmt.Errorf("opening document store: %w", err)
		}
		defer docs.Close()
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg    sync.WaitGroup
		stats loadStats
		mu    sync.Mutex
		errs  []error
	)
	write := func(id ident.ID, doc document.Document) {
		if docs != nil {
			if _, err := docs.Set(ctx, &id, doc); err != nil {
				stats.failed.Add(1)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
		}
		if err := ix.Write(ctx, id, doc); err != nil {
			stats.failed.Add(1)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return
		}
		stats.docs.Add(1)
	}

	for _, file := range files {
		if err := readLines(ctx, file, func(id ident.ID, doc document.Document) error {
			wg.Add(1)
			err := pool.Submit(func() {
				defer wg.Done()
				write(id, doc)
			})
			if err != nil {
				wg.Done()
			}
			return err
		}); err != nil {
			wg.Wait()
			return err
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%d documents failed: %w", stats.failed.Load(), errors.Join(errs...))
	}
	engine.MarkDirty()
	if err := engine.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents, %d terms in %d shards -> %s\n",
		stats.docs.Load(), ix.TermCount(), ix.NumShards(), g.cfg.Snapshot.Path)
	return nil
}

// readLines decodes file line by line and hands each document to fn. Blank
// lines are skipped; a malformed line aborts with its line number.
func readLines(ctx context.Context, file string, fn func(ident.ID, document.Document) error) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		id, doc, err := parseLine(raw)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, line, err)
		}
		if err := fn(id, doc); err != nil {
			return fmt.Errorf("%s:%d: %w", file, line, err)
		}
	}
	return sc.Err()
}

func parseLine(raw []byte) (ident.ID, document.Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ident.Nil, nil, err
	}
	if _, ok := fields["item"]; ok {
		var ev consumer.WriteEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return ident.Nil, nil, err
		}
		if ev.Item == nil {
			return ident.Nil, nil, errors.New("item is null")
		}
		if ev.ID != nil {
			return *ev.ID, ev.Item, nil
		}
		return ident.New(), ev.Item, nil
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return ident.Nil, nil, err
	}
	return ident.New(), doc, nil
}
