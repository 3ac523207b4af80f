package index

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/strmatch"
)

var (
	id1 = ident.FromUint64s(0, 1)
	id2 = ident.FromUint64s(0, 2)
	id3 = ident.FromUint64s(0, 3)
)

func leafDoc(text string) document.Document {
	return document.Document{"text": document.Leaf(text)}
}

func search(t *testing.T, ix Index, q string) []ident.ID {
	t.Helper()
	ids, err := ix.Search(context.Background(), q)
	require.NoError(t, err)
	return ids
}

func write(t *testing.T, ix Index, id ident.ID, doc document.Document) {
	t.Helper()
	require.NoError(t, ix.Write(context.Background(), id, doc))
}

func forEachImpl(t *testing.T, fn func(t *testing.T)) {
	for _, impl := range []strmatch.Impl{strmatch.Generic, strmatch.Batched} {
		t.Run(impl.String(), func(t *testing.T) {
			defer strmatch.Use(impl)()
			fn(t)
		})
	}
}

func TestSearchMatchRules(t *testing.T) {
	forEachImpl(t, func(t *testing.T) {
		ix := NewInvertedIndex()
		write(t, ix, id1, leafDoc("socrates untrusting"))
		write(t, ix, id2, leafDoc("diogenes"))
		write(t, ix, id3, leafDoc("enim magnificus lacus"))

		assert.Equal(t, []ident.ID{id2}, search(t, ix, "diogenes"), "exact")
		assert.Equal(t, []ident.ID{id1}, search(t, ix, "crate"), "partial")
		assert.Equal(t, []ident.ID{id1}, search(t, ix, "rust"), "partial inside word")
		assert.Equal(t, []ident.ID{id3}, search(t, ix, "magnifjcus"), "typo within a quarter of the length")
		assert.Empty(t, search(t, ix, "zzz"), "short terms never typo-match")
		assert.Empty(t, search(t, ix, "lacxx"), "two typos in five bytes is too many")
	})
}

func TestTypoThreshold(t *testing.T) {
	ix := NewInvertedIndex()
	write(t, ix, id1, leafDoc("abcdefgh"))

	// len 8 allows distance < 2
	assert.Equal(t, []ident.ID{id1}, search(t, ix, "abcdefgx"))
	assert.Empty(t, search(t, ix, "abcdefxx"))
	// length difference counts towards the distance
	assert.Empty(t, search(t, ix, "abcdefghij"))
}

func TestWriteIsIdempotent(t *testing.T) {
	ix := NewInvertedIndex()
	doc := leafDoc("lorem ipsum")
	write(t, ix, id1, doc)
	write(t, ix, id1, doc)

	assert.Equal(t, []ident.ID{id1}, ix.Postings("lorem"))
	assert.Equal(t, []ident.ID{id1}, search(t, ix, "lorem"))
	assert.Equal(t, 2, ix.TermCount())
}

func TestWriteDedupesTermsWithinDocument(t *testing.T) {
	ix := NewInvertedIndex()
	write(t, ix, id1, document.Document{
		"a": document.Leaf("Lorem lorem"),
		"b": document.List{document.Leaf("LOREM")},
	})
	assert.Equal(t, 1, ix.TermCount())
	assert.Equal(t, []ident.ID{id1}, ix.Postings("lorem"))
}

func TestCaseNormalisation(t *testing.T) {
	ix := NewInvertedIndex()
	write(t, ix, id1, leafDoc("Lorem"))
	assert.Equal(t, []ident.ID{id1}, search(t, ix, "LOREM"))
	assert.Equal(t, []ident.ID{id1}, search(t, ix, "lorem"))
}

func TestSearchDedupesInFirstSeenOrder(t *testing.T) {
	ix := NewInvertedIndex()
	write(t, ix, id2, leafDoc("alpha beta"))
	write(t, ix, id1, leafDoc("beta"))
	write(t, ix, id3, leafDoc("gamma alpha"))

	// "alpha" yields id2, id3; "beta" adds id2 (dup) then id1
	assert.Equal(t, []ident.ID{id2, id3, id1}, search(t, ix, "alpha beta alpha"))
}

func TestEmptyCases(t *testing.T) {
	ix := NewInvertedIndex()
	assert.Empty(t, search(t, ix, "anything"))

	write(t, ix, id1, leafDoc("lorem"))
	assert.Empty(t, search(t, ix, ""))
	assert.Empty(t, search(t, ix, "   "))

	write(t, ix, id2, document.Document{})
	write(t, ix, id3, leafDoc("  "))
	assert.Equal(t, 1, ix.TermCount())
}

func TestWithTypoScorer(t *testing.T) {
	ix := NewInvertedIndex(WithTypoScorer(strmatch.KeyboardTypoDistance))
	write(t, ix, id1, leafDoc("ipsum"))

	// u and i are neighbouring keys
	assert.Equal(t, []ident.ID{id1}, search(t, ix, "ipsim"))

	plain := NewInvertedIndex()
	write(t, plain, id1, leafDoc("ipsum"))
	assert.Empty(t, search(t, plain, "ipsim"))
}

func TestSerializeRoundTrip(t *testing.T) {
	for _, c := range []segment.Compression{segment.CompressionNone, segment.CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			src := NewInvertedIndex(WithCompression(c))
			write(t, src, id1, leafDoc("lorem ipsum"))
			write(t, src, id2, leafDoc("ipsum dolor"))

			var buf bytes.Buffer
			require.NoError(t, src.Serialize(&buf))

			dst := NewInvertedIndex()
			require.NoError(t, dst.Deserialize(&buf))
			for _, q := range []string{"lorem", "ipsum", "dolor", "sum", "nothing"} {
				assert.Equal(t, search(t, src, q), search(t, dst, q), q)
			}
		})
	}
}

func TestDeserializeMergesAndLaterRecordWins(t *testing.T) {
	ix := NewInvertedIndex()
	write(t, ix, id1, leafDoc("kept replaced"))

	var buf bytes.Buffer
	require.NoError(t, segment.Encode(&buf, []segment.Record{
		{Term: "replaced", IDs: []ident.ID{id2}},
		{Term: "fresh", IDs: []ident.ID{id2, id2}},
		{Term: "replaced", IDs: []ident.ID{id3}},
	}, segment.CompressionNone))
	require.NoError(t, ix.Deserialize(&buf))

	assert.Equal(t, []ident.ID{id1}, ix.Postings("kept"))
	assert.Equal(t, []ident.ID{id3}, ix.Postings("replaced"))
	assert.Equal(t, []ident.ID{id2}, ix.Postings("fresh"))
}

func TestDeserializeCorruptLeavesIndexUntouched(t *testing.T) {
	ix := NewInvertedIndex()
	write(t, ix, id1, leafDoc("lorem"))

	var buf bytes.Buffer
	require.NoError(t, segment.Encode(&buf, []segment.Record{{Term: "lorem", IDs: []ident.ID{id2}}}, segment.CompressionNone))
	data := buf.Bytes()
	data[segment.HeaderSize+2] ^= 0xff

	err := ix.Deserialize(bytes.NewReader(data))
	require.Error(t, err)
	assert.True(t, errors.Is(err, segment.ErrCorrupt))
	assert.Equal(t, []ident.ID{id1}, ix.Postings("lorem"))
}

func TestFind(t *testing.T) {
	inner := NewInvertedIndex()
	outer := passthrough{inner: inner}

	got, ok := Find[*InvertedIndex](outer)
	require.True(t, ok)
	assert.Same(t, inner, got)

	_, ok = Find[Persistent](passthrough{inner: passthrough{}})
	assert.False(t, ok)
}

type passthrough struct{ inner Index }

func (p passthrough) Search(ctx context.Context, q string) ([]ident.ID, error) {
	return p.inner.Search(ctx, q)
}

func (p passthrough) Write(ctx context.Context, id ident.ID, doc document.Document) error {
	return p.inner.Write(ctx, id, doc)
}

func (p passthrough) Unwrap() Index { return p.inner }
