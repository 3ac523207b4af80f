package shard

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
)

var benchTerms = []string{"walnut", "oak", "lamp", "desk", "brass", "linen", "shelf", "stool"}

func benchDoc(i int) document.Document {
	return document.Document{
		"title": document.Leaf(fmt.Sprintf("%s %s", benchTerms[i%len(benchTerms)], benchTerms[(i+1)%len(benchTerms)])),
		"tags": document.List{
			document.Leaf(benchTerms[(i+2)%len(benchTerms)]),
			document.Leaf(fmt.Sprintf("sku%d", i)),
		},
	}
}

func preload(b *testing.B, shards, docs int) *Index {
	b.Helper()
	ix, err := New(shards, segment.CompressionZSTD)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	for i := range docs {
		if err := ix.Write(ctx, ident.FromUint64s(0, uint64(i+1)), benchDoc(i)); err != nil {
			b.Fatal(err)
		}
	}
	return ix
}

func BenchmarkWrite(b *testing.B) {
	for _, preloaded := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("preload_%d", preloaded), func(b *testing.B) {
			ix := preload(b, 4, preloaded)
			ctx := context.Background()
			b.ReportAllocs()
			i := preloaded
			for b.Loop() {
				i++
				if err := ix.Write(ctx, ident.FromUint64s(0, uint64(i)), benchDoc(i)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSearch runs single-term queries over 5000 documents. Every query
// scans all terms, so the sku terms dominate.
func BenchmarkSearch(b *testing.B) {
	for _, shards := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("shards_%d", shards), func(b *testing.B) {
			ix := preload(b, shards, 5000)
			ctx := context.Background()
			b.ReportAllocs()
			i := 0
			for b.Loop() {
				if _, err := ix.Search(ctx, benchTerms[i%len(benchTerms)]); err != nil {
					b.Fatal(err)
				}
				i++
			}
		})
	}
}

func BenchmarkSearchParallel(b *testing.B) {
	ix := preload(b, 4, 5000)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := ix.Search(ctx, benchTerms[i%len(benchTerms)]); err != nil {
				b.Error(err)
				return
			}
			i++
		}
	})
}

func BenchmarkSerialize(b *testing.B) {
	ix := preload(b, 4, 5000)
	var buf bytes.Buffer
	b.ReportAllocs()
	for b.Loop() {
		buf.Reset()
		if err := ix.Serialize(&buf); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(buf.Len()))
}
