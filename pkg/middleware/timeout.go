package middleware

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// Timeout is NewTimeouts(timeout).Middleware for callers that never need
// to wait for abandoned handlers.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return NewTimeouts(timeout).Middleware
}

// Timeouts bounds each request's context. If the handler has not started
// its response by the deadline the client gets a 504 and the handler keeps
// running detached, its later writes dropped. A panic in the handler is
// re-raised on the serving goroutine.
type Timeouts struct {
	timeout time.Duration
	running sync.WaitGroup
}

func NewTimeouts(timeout time.Duration) *Timeouts {
	return &Timeouts{timeout: timeout}
}

func (t *Timeouts) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), t.timeout)
		defer cancel()

		gw := &guardedWriter{w: w, header: make(http.Header)}
		done := make(chan struct{})
		panicked := make(chan any, 1)
		t.running.Add(1)
		go func() {
			defer t.running.Done()
			defer func() {
				if p := recover(); p != nil {
					panicked <- p
				}
			}()
			next.ServeHTTP(gw, r.WithContext(ctx))
			close(done)
		}()

		select {
		case <-done:
			gw.finish()
		case p := <-panicked:
			panic(p)
		case <-ctx.Done():
			if gw.expire() {
				logger.FromContext(r.Context()).Warn("request timed out",
					"method", r.Method,
					"path", r.URL.Path,
					"timeout", t.timeout,
				)
				apperrors.Write(w, apperrors.ErrTimeout)
			}
		}
	})
}

// Wait blocks until every handler started by the middleware, including
// those abandoned at their deadline, has returned, or until ctx is done.
func (t *Timeouts) Wait(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		t.running.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// guardedWriter gives the handler its own header map. Headers reach the
// real writer only when the response starts before the deadline, so the
// timeout reply and a late handler never share a map.
type guardedWriter struct {
	w      http.ResponseWriter
	header http.Header

	mu      sync.Mutex
	started bool
	expired bool
}

func (gw *guardedWriter) Header() http.Header { return gw.header }

// expire marks the writer dead and reports whether the timeout response
// may still be sent.
func (gw *guardedWriter) expire() bool {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.expired = true
	return !gw.started
}

// finish copies headers of a handler that returned without writing.
func (gw *guardedWriter) finish() {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if !gw.started && !gw.expired {
		maps.Copy(gw.w.Header(), gw.header)
	}
}

// start must be called with mu held.
func (gw *guardedWriter) start(code int) {
	if gw.started {
		return
	}
	gw.started = true
	maps.Copy(gw.w.Header(), gw.header)
	gw.w.WriteHeader(code)
}

func (gw *guardedWriter) WriteHeader(code int) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.expired {
		return
	}
	gw.start(code)
}

func (gw *guardedWriter) Write(b []byte) (int, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.expired {
		return 0, http.ErrHandlerTimeout
	}
	gw.start(http.StatusOK)
	return gw.w.Write(b)
}
