package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// globals carries the persistent flags and the config they resolve to.
type globals struct {
	configPath string
	snapshot   string
	logLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   "indexctl",
		Short: "Build, query and inspect docsearch index snapshots",
		Long: `indexctl works on the snapshot files written by the search service.

It can bulk-load JSON Lines documents into a snapshot, run queries against a
snapshot, print snapshot statistics and re-encode a snapshot with a different
compression codec. The bench command replays queries against a running
service instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&g.configPath, "config", "configs/development.yaml", "Path to config file (empty for defaults)")
	cmd.PersistentFlags().StringVar(&g.snapshot, "snapshot", "", "Snapshot path (overrides snapshot.path)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newLoadCmd(g),
		newQueryCmd(g),
		newInspectCmd(g),
		newConvertCmd(g),
		newBenchCmd(),
	)
	return cmd
}

func (g *globals) load(logOut io.Writer) error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if g.snapshot != "" {
		cfg.Snapshot.Path = g.snapshot
	}
	// Offline tools never mirror to remote storage.
	cfg.Snapshot.Remote.Enabled = false
	g.cfg = cfg
	slog.SetDefault(logger.New(logOut, g.logLevel, "text"))
	return nil
}

// openIndex builds an index from the config and loads the snapshot into it.
func (g *globals) openIndex(ctx context.Context) (*shard.Index, *indexer.Engine, error) {
	ix, err := indexer.NewIndex(g.cfg)
	if err != nil {
		return nil, nil, err
	}
	engine, err := indexer.NewEngine(g.cfg.Snapshot, ix)
	if err != nil {
		return nil, nil, err
	}
	if err := engine.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return ix, engine, nil
}
