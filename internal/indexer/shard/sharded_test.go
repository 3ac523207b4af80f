package shard

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
)

var corpus = []string{
	"socrates plato aristotle",
	"diogenes of sinope",
	"marcus aurelius meditations",
	"seneca letters from a stoic",
	"epictetus discourses enchiridion",
	"untrusting crates",
}

func build(t *testing.T, ix index.Index) []ident.ID {
	t.Helper()
	ids := make([]ident.ID, len(corpus))
	for i, text := range corpus {
		ids[i] = ident.FromUint64s(0, uint64(i+1))
		require.NoError(t, ix.Write(context.Background(), ids[i], document.Document{"text": document.Leaf(text)}))
	}
	return ids
}

func TestNewRejectsZeroShards(t *testing.T) {
	_, err := New(0, segment.CompressionNone)
	assert.Error(t, err)
}

func TestMatchesSingleIndex(t *testing.T) {
	single := index.NewInvertedIndex()
	build(t, single)

	for _, n := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("shards=%d", n), func(t *testing.T) {
			sharded, err := New(n, segment.CompressionNone)
			require.NoError(t, err)
			build(t, sharded)

			for _, q := range []string{"crate", "rust", "stoic letters", "meditatoins", "socrates diogenes", "nothing", ""} {
				want, err := single.Search(context.Background(), q)
				require.NoError(t, err)
				got, err := sharded.Search(context.Background(), q)
				require.NoError(t, err)
				assert.ElementsMatch(t, want, got, "query %q", q)
			}
			assert.Equal(t, single.TermCount(), sharded.TermCount())
		})
	}
}

func TestTermsLandOnOneShard(t *testing.T) {
	s, err := New(4, segment.CompressionNone)
	require.NoError(t, err)
	build(t, s)

	counts := s.ShardTermCounts()
	total := 0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, s.TermCount(), total)
	assert.Equal(t, []ident.ID{ident.FromUint64s(0, 2)}, s.Postings("sinope"))
}

func TestSearchIsShardMajor(t *testing.T) {
	s, err := New(4, segment.CompressionNone)
	require.NoError(t, err)

	// Find two words owned by different shards, low before high.
	words := []string{"zebra", "quokka", "narwhal", "axolotl", "pangolin", "okapi", "tapir", "wombat"}
	low, high := words[0], ""
	for _, w := range words[1:] {
		if s.ShardFor(w) != s.ShardFor(low) {
			high = w
			break
		}
	}
	require.NotEmpty(t, high)
	if s.ShardFor(low) > s.ShardFor(high) {
		low, high = high, low
	}

	first, second := ident.FromUint64s(0, 1), ident.FromUint64s(0, 2)
	require.NoError(t, s.Write(context.Background(), first, document.Document{"text": document.Leaf(high)}))
	require.NoError(t, s.Write(context.Background(), second, document.Document{"text": document.Leaf(low)}))

	got, err := s.Search(context.Background(), high+" "+low)
	require.NoError(t, err)
	assert.Equal(t, []ident.ID{second, first}, got, "lower shard's matches come first")
}

func TestSearchHonoursCancellation(t *testing.T) {
	s, err := New(2, segment.CompressionNone)
	require.NoError(t, err)
	build(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Search(ctx, "stoic")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentWritesAndSearches(t *testing.T) {
	s, err := New(4, segment.CompressionNone)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := ident.FromUint64s(uint64(w), uint64(i))
				doc := document.Document{"text": document.Leaf(fmt.Sprintf("shared word%d", i))}
				assert.NoError(t, s.Write(context.Background(), id, doc))
				_, err := s.Search(context.Background(), "shared")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.Postings("shared"), 400)
	assert.Equal(t, 51, s.TermCount())
}

func TestSnapshotAcrossShardCounts(t *testing.T) {
	src, err := New(3, segment.CompressionLZ4)
	require.NoError(t, err)
	build(t, src)

	var buf bytes.Buffer
	require.NoError(t, src.Serialize(&buf))

	dst, err := New(5, segment.CompressionNone)
	require.NoError(t, err)
	require.NoError(t, dst.Deserialize(&buf))

	for _, q := range []string{"crate", "aurelius", "epictetus"} {
		want, _ := src.Search(context.Background(), q)
		got, _ := dst.Search(context.Background(), q)
		assert.ElementsMatch(t, want, got, q)
	}
	assert.ElementsMatch(t, src.Records(), dst.Records())
}

func TestDeserializeCorrupt(t *testing.T) {
	s, err := New(2, segment.CompressionNone)
	require.NoError(t, err)
	build(t, s)
	before := s.Records()

	err = s.Deserialize(bytes.NewReader([]byte("garbage")))
	assert.ErrorIs(t, err, segment.ErrCorrupt)
	assert.ElementsMatch(t, before, s.Records())
}
