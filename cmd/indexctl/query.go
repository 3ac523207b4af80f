package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/store"
)

func newQueryCmd(g *globals) *cobra.Command {
	var (
		jsonOutput bool
		withDocs   bool
	)

	cmd := &cobra.Command{
		Use:   "query TERMS...",
		Short: "Search the snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ix, _, err := g.openIndex(ctx)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			ids, err := ix.Search(ctx, query)
			if err != nil {
				return err
			}

			var docs []document.Document
			if withDocs {
				st, err := store.Open(ctx, g.cfg)
				if err != nil {
					return fmt.Errorf("opening document store: %w", err)
				}
				defer st.Close()
				if docs, err = st.List(ctx, ids); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if ids == nil {
					ids = []ident.ID{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Query     string              `json:"query"`
					IDs       []ident.ID          `json:"ids"`
					Documents []document.Document `json:"documents,omitempty"`
				}{query, ids, docs})
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			for _, doc := range docs {
				line, err := json.Marshal(doc)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(line))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&withDocs, "docs", false, "Resolve documents from the configured store")
	return cmd
}
