// Package instrumented records Prometheus metrics for index operations.
package instrumented

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

type Index struct {
	inner   index.Index
	metrics *metrics.Metrics
}

var (
	_ index.Index   = (*Index)(nil)
	_ index.Wrapper = (*Index)(nil)
)

func Wrap(inner index.Index, m *metrics.Metrics) *Index {
	return &Index{inner: inner, metrics: m}
}

func (ix *Index) Search(ctx context.Context, query string) ([]ident.ID, error) {
	start := time.Now()
	ids, err := ix.inner.Search(ctx, query)
	elapsed := time.Since(start)
	ix.metrics.SearchLatency.Observe(elapsed.Seconds())

	log := logger.FromContext(ctx)
	switch {
	case err != nil:
		ix.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		log.Warn("search failed", "query", query, "error", err)
		return nil, err
	case len(ids) == 0:
		ix.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
	default:
		ix.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
	}
	ix.metrics.SearchResultsCount.Observe(float64(len(ids)))
	log.LogAttrs(ctx, slog.LevelDebug, "search",
		slog.String("query", query),
		slog.Int("results", len(ids)),
		slog.Duration("elapsed", elapsed),
	)
	return ids, nil
}

func (ix *Index) Write(ctx context.Context, id ident.ID, doc document.Document) error {
	if err := ix.inner.Write(ctx, id, doc); err != nil {
		return err
	}
	ix.metrics.DocumentsWritten.Inc()
	ix.ObserveSize()
	return nil
}

// ObserveSize refreshes the term gauges from the first layer that can
// report them.
func (ix *Index) ObserveSize() {
	if st, ok := index.Find[index.Stats](ix.inner); ok {
		ix.metrics.IndexTerms.Set(float64(st.TermCount()))
	}
	if sh, ok := index.Find[ShardStats](ix.inner); ok {
		ix.metrics.IndexShards.Set(float64(sh.NumShards()))
		for i, n := range sh.ShardTermCounts() {
			ix.metrics.ShardTerms.WithLabelValues(strconv.Itoa(i)).Set(float64(n))
		}
	}
}

func (ix *Index) Unwrap() index.Index { return ix.inner }

// ShardStats is implemented by sharded indexes.
type ShardStats interface {
	NumShards() int
	ShardTermCounts() []int
}
