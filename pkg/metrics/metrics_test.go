package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ClicksTotal.Inc()
	m.SnapshotSavesTotal.WithLabelValues("ok").Add(2)
	m.IndexTerms.Set(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClicksTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SnapshotSavesTotal.WithLabelValues("ok")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.IndexTerms))

	// A second set on a fresh registry must not collide.
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.DocumentsWritten.Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "documents_written_total 3")
}

func TestServeBindsAndServes(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IndexShards.Set(4)

	srv, err := m.Serve("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "index_shards 4")
	assert.Contains(t, string(body), "promhttp_metric_handler_requests_total")

	_, err = m.Serve(srv.Addr())
	assert.Error(t, err, "second bind on the same port")
}
