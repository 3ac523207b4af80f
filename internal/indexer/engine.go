// Package indexer owns the lifecycle of the index snapshot: loading it at
// startup, saving it periodically and on shutdown, and mirroring it to
// remote storage.
package indexer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/remote"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const lockRetryDelay = 50 * time.Millisecond

// SaveObserver is told about every save attempt.
type SaveObserver func(err error, took time.Duration)

type Option func(*Engine)

// WithRemote mirrors every saved snapshot to sink and restores from it when
// no local snapshot exists.
func WithRemote(sink remote.Sink, retry resilience.RetryConfig) Option {
	return func(e *Engine) {
		e.remote = sink
		e.retry = retry
	}
}

func WithSaveObserver(fn SaveObserver) Option {
	return func(e *Engine) { e.observe = fn }
}

type Engine struct {
	ix      index.Persistent
	cfg     config.SnapshotConfig
	lock    *flock.Flock
	remote  remote.Sink
	retry   resilience.RetryConfig
	observe SaveObserver
	logger  *slog.Logger

	mu    sync.Mutex
	dirty atomic.Bool
}

func NewEngine(cfg config.SnapshotConfig, ix index.Persistent, opts ...Option) (*Engine, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: snapshot path is empty", apperrors.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	e := &Engine{
		ix:     ix,
		cfg:    cfg,
		lock:   flock.New(cfg.Path + ".lock"),
		logger: slog.Default().With("component", "snapshot", "path", cfg.Path),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MarkDirty records that the index changed since the last save.
func (e *Engine) MarkDirty() {
	e.dirty.Store(true)
}

func (e *Engine) Dirty() bool {
	return e.dirty.Load()
}

func (e *Engine) remoteName() string {
	return filepath.Base(e.cfg.Path)
}

// acquire takes the cross-process snapshot lock, giving up after
// cfg.LockTimeout.
func (e *Engine) acquire(ctx context.Context) (func(), error) {
	if e.cfg.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.LockTimeout)
		defer cancel()
	}
	ok, err := e.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("acquiring snapshot lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: snapshot lock %s is held by another process", apperrors.ErrUnavailable, e.lock.Path())
	}
	return func() {
		if err := e.lock.Unlock(); err != nil {
			e.logger.Error("releasing snapshot lock", "error", err)
		}
	}, nil
}

// Load applies the snapshot on disk to the index. A missing snapshot is
// fetched from the remote sink when one is configured; if there is none at
// all the index is left empty. A corrupt snapshot fails without touching the
// index.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	unlock, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	f, err := os.Open(e.cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		restored, rerr := e.restoreRemote(ctx)
		if rerr != nil {
			return rerr
		}
		if !restored {
			e.logger.Info("no snapshot found, starting with an empty index")
			return nil
		}
		f, err = os.Open(e.cfg.Path)
	}
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	start := time.Now()
	if err := e.ix.Deserialize(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("loading snapshot %s: %w", e.cfg.Path, err)
	}
	attrs := []any{"took", time.Since(start)}
	if st, ok := e.ix.(index.Stats); ok {
		attrs = append(attrs, "terms", st.TermCount())
	}
	e.logger.Info("snapshot loaded", attrs...)
	return nil
}

func (e *Engine) restoreRemote(ctx context.Context) (bool, error) {
	if e.remote == nil {
		return false, nil
	}
	var data []byte
	err := resilience.Retry(ctx, "snapshot-download", e.retry, func(int) error {
		var err error
		data, err = e.remote.Get(ctx, e.remoteName())
		if errors.Is(err, remote.ErrNotFound) {
			return resilience.Permanent(err)
		}
		return err
	})
	if errors.Is(err, remote.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("restoring snapshot from remote: %w", err)
	}
	if err := writeFileAtomic(e.cfg.Path, data); err != nil {
		return false, err
	}
	e.logger.Info("snapshot restored from remote", "bytes", len(data))
	return true, nil
}

// Save writes the index to disk, replacing the previous snapshot
// atomically, then uploads it when a remote sink is configured. Writes that
// land while the snapshot is being taken leave the engine dirty.
func (e *Engine) Save(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if e.observe != nil {
			e.observe(err, time.Since(start))
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	unlock, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	e.dirty.Store(false)
	if err := e.writeLocal(); err != nil {
		e.dirty.Store(true)
		return err
	}
	e.logger.Info("snapshot saved", "took", time.Since(start))

	if e.remote != nil {
		if err := e.upload(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) writeLocal() error {
	tmpPath := e.cfg.Path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := e.ix.Serialize(w); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := w.Flush(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("flushing snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, e.cfg.Path); err != nil {
		return fmt.Errorf("renaming snapshot file: %w", err)
	}
	return nil
}

func (e *Engine) upload(ctx context.Context) error {
	data, err := os.ReadFile(e.cfg.Path)
	if err != nil {
		return fmt.Errorf("reading snapshot for upload: %w", err)
	}
	err = resilience.Retry(ctx, "snapshot-upload", e.retry, func(int) error {
		return resilience.WithTimeout(ctx, 30*time.Second, "snapshot-upload", func(ctx context.Context) error {
			return e.remote.Put(ctx, e.remoteName(), data)
		})
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}
	e.logger.Info("snapshot uploaded", "bytes", len(data))
	return nil
}

// StartFlushLoop saves the snapshot every cfg.Interval while the index is
// dirty, and once more when ctx is cancelled. The returned channel is
// closed after the final save.
func (e *Engine) StartFlushLoop(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if e.cfg.Interval <= 0 {
		go func() {
			defer close(done)
			<-ctx.Done()
			e.finalSave()
		}()
		return done
	}
	ticker := time.NewTicker(e.cfg.Interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("flush loop stopping, performing final save")
				e.finalSave()
				return
			case <-ticker.C:
				if e.Dirty() {
					if err := e.Save(ctx); err != nil {
						e.logger.Error("periodic snapshot failed", "error", err)
					}
				}
			}
		}
	}()
	return done
}

func (e *Engine) finalSave() {
	if !e.Dirty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Save(ctx); err != nil {
		e.logger.Error("final snapshot failed", "error", err)
	}
}

// Close saves a dirty index.
func (e *Engine) Close(ctx context.Context) error {
	if !e.Dirty() {
		return nil
	}
	return e.Save(ctx)
}

func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmpPath, err)
	}
	return nil
}
