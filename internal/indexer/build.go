package indexer

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/strmatch"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

// NewIndex builds the sharded index described by cfg.
func NewIndex(cfg *config.Config) (*shard.Index, error) {
	compression, err := segment.ParseCompression(cfg.Snapshot.Compression)
	if err != nil {
		return nil, err
	}
	var opts []index.Option
	switch cfg.Index.TypoScorer {
	case "", "bytes":
	case "keyboard":
		opts = append(opts, index.WithTypoScorer(strmatch.KeyboardTypoDistance))
	default:
		return nil, fmt.Errorf("unknown typo scorer %q", cfg.Index.TypoScorer)
	}
	return shard.New(cfg.Index.Shards, compression, opts...)
}
