package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

func TestNewIndex(t *testing.T) {
	cfg := &config.Config{
		Index:    config.IndexConfig{Shards: 3, TypoScorer: "keyboard"},
		Snapshot: config.SnapshotConfig{Compression: "lz4"},
	}
	ix, err := NewIndex(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.NumShards())

	ctx := context.Background()
	id := ident.New()
	require.NoError(t, ix.Write(ctx, id, document.Document{"t": document.Leaf("keyboard")}))
	// Two neighbouring-key slips: over the byte threshold, forgiven by the
	// keyboard scorer.
	got, err := ix.Search(ctx, "jeyboatd")
	require.NoError(t, err)
	assert.Equal(t, []ident.ID{id}, got)
}

func TestNewIndexRejectsBadConfig(t *testing.T) {
	_, err := NewIndex(&config.Config{Index: config.IndexConfig{Shards: 1, TypoScorer: "phonetic"}})
	assert.Error(t, err)
	_, err = NewIndex(&config.Config{
		Index:    config.IndexConfig{Shards: 1},
		Snapshot: config.SnapshotConfig{Compression: "brotli"},
	})
	assert.Error(t, err)
	_, err = NewIndex(&config.Config{Index: config.IndexConfig{Shards: 0}})
	assert.Error(t, err)
}
