package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

// Trace opens a root span per request and logs the finished tree at debug
// level. Requests slower than slow, or answered with a 5xx, log at warn. A
// zero slow never warns on latency. It must run inside RequestID to share
// its ID.
func Trace(slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.Start(r.Context(), r.Method+" "+normalizePath(r.URL.Path))
			rec := record(w)
			next.ServeHTTP(rec, r.WithContext(ctx))
			span.SetAttr("status", rec.Status())
			span.End()

			level := slog.LevelDebug
			if (slow > 0 && span.Duration > slow) || rec.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			span.Log(ctx, logger.FromContext(ctx), level)
		})
	}
}
