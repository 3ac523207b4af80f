package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
)

const sampleDocs = `{"id":"00000000-0000-0000-0000-000000000001","item":{"title":"mechanical keyboard","tags":["usb","rgb"]}}
{"id":"00000000-0000-0000-0000-000000000002","item":{"title":"wireless mouse","specs":{"dpi":1600}}}

{"title":"keyboard cover"}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setup(t *testing.T) (dir, snapshot string) {
	t.Helper()
	dir = t.TempDir()
	snapshot = filepath.Join(dir, "index.dsix")
	docs := filepath.Join(dir, "docs.jsonl")
	require.NoError(t, os.WriteFile(docs, []byte(sampleDocs), 0o644))

	out, err := run(t, "--config", "", "--snapshot", snapshot, "load", "--workers", "2", docs)
	require.NoError(t, err, out)
	assert.Contains(t, out, "indexed 3 documents")
	return dir, snapshot
}

func TestLoadAndQuery(t *testing.T) {
	_, snapshot := setup(t)

	out, err := run(t, "--config", "", "--snapshot", snapshot, "query", "mouse")
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000002\n", out)

	out, err = run(t, "--config", "", "--snapshot", snapshot, "query", "--json", "keyboard")
	require.NoError(t, err)
	var res struct {
		Query string   `json:"query"`
		IDs   []string `json:"ids"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "keyboard", res.Query)
	assert.Len(t, res.IDs, 2)
	assert.Contains(t, res.IDs, "00000000-0000-0000-0000-000000000001")
}

func TestQueryWithoutSnapshotFindsNothing(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "missing.dsix")
	out, err := run(t, "--config", "", "--snapshot", snapshot, "query", "--json", "anything")
	require.NoError(t, err)
	assert.Contains(t, out, `"ids": []`)
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(docs, []byte("{\"title\":\"ok\"}\nnot json\n"), 0o644))

	_, err := run(t, "--config", "", "--snapshot", filepath.Join(dir, "ix.dsix"), "load", docs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.jsonl:2")
}

func TestInspect(t *testing.T) {
	_, snapshot := setup(t)

	out, err := run(t, "--config", "", "--snapshot", snapshot, "inspect", "--json", "--top", "1")
	require.NoError(t, err)
	var info SnapshotInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "zstd", info.Compression)
	assert.Equal(t, 3, info.Documents)
	require.Len(t, info.TopTerms, 1)
	assert.Equal(t, "keyboard", info.TopTerms[0].Term)
	assert.Equal(t, 2, info.TopTerms[0].Docs)

	out, err = run(t, "--config", "", "inspect", snapshot)
	require.NoError(t, err)
	assert.Contains(t, out, "compression:")
	assert.Contains(t, out, "documents:")
}

func TestConvert(t *testing.T) {
	dir, snapshot := setup(t)
	converted := filepath.Join(dir, "plain.dsix")

	out, err := run(t, "--config", "", "convert", "--compression", "none", snapshot, converted)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "(none,"), out)

	before, _, err := segment.ReadFile(snapshot)
	require.NoError(t, err)
	after, hdr, err := segment.ReadFile(converted)
	require.NoError(t, err)
	assert.Equal(t, segment.CompressionNone, hdr.Compression)
	assert.ElementsMatch(t, before, after)

	_, err = run(t, "--config", "", "convert", "--compression", "brotli", snapshot, converted)
	require.Error(t, err)
}

func TestBench(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasPrefix(r.URL.Path, "/api/v1/query/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"ids":[]}`))
	}))
	defer srv.Close()

	out, err := run(t, "--config", "", "bench", "--url", srv.URL, "--concurrency", "2", "--duration", "200ms")
	require.NoError(t, err)
	assert.Positive(t, hits.Load())
	assert.Contains(t, out, "status 200:")
	assert.NotContains(t, out, "status 404:")
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Zero(t, percentile(nil, 50))
}
