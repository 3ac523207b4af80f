package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
)

// SnapshotInfo summarizes a snapshot file.
type SnapshotInfo struct {
	Path        string      `json:"path"`
	Version     uint16      `json:"version"`
	Compression string      `json:"compression"`
	CreatedAt   time.Time   `json:"created_at"`
	RawBytes    uint64      `json:"raw_bytes"`
	StoredBytes uint64      `json:"stored_bytes"`
	Records     uint32      `json:"records"`
	Terms       int         `json:"terms"`
	Documents   int         `json:"documents"`
	Postings    int         `json:"postings"`
	TopTerms    []TermCount `json:"top_terms"`
}

type TermCount struct {
	Term string `json:"term"`
	Docs int    `json:"docs"`
}

func newInspectCmd(g *globals) *cobra.Command {
	var (
		jsonOutput bool
		top        int
	)

	cmd := &cobra.Command{
		Use:   "inspect [SNAPSHOT]",
		Short: "Print snapshot header and statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.cfg.Snapshot.Path
			if len(args) > 0 {
				path = args[0]
			}
			records, hdr, err := segment.ReadFile(path)
			if err != nil {
				return err
			}
			info := summarize(path, records, hdr, top)

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "path:\t%s\n", info.Path)
			fmt.Fprintf(tw, "version:\t%d\n", info.Version)
			fmt.Fprintf(tw, "compression:\t%s\n", info.Compression)
			fmt.Fprintf(tw, "created:\t%s\n", info.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(tw, "size:\t%d stored / %d raw bytes\n", info.StoredBytes, info.RawBytes)
			fmt.Fprintf(tw, "terms:\t%d (%d records)\n", info.Terms, info.Records)
			fmt.Fprintf(tw, "documents:\t%d\n", info.Documents)
			fmt.Fprintf(tw, "postings:\t%d\n", info.Postings)
			for _, tc := range info.TopTerms {
				fmt.Fprintf(tw, "  %s\t%d\n", tc.Term, tc.Docs)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().IntVar(&top, "top", 10, "Number of most frequent terms to list")
	return cmd
}

// summarize applies records in order, so a repeated term counts once with
// its last posting list.
func summarize(path string, records []segment.Record, hdr segment.Header, top int) SnapshotInfo {
	latest := make(map[string][]ident.ID, len(records))
	for _, rec := range records {
		latest[rec.Term] = rec.IDs
	}
	docs := make(map[ident.ID]struct{})
	terms := make([]TermCount, 0, len(latest))
	postings := 0
	for term, ids := range latest {
		postings += len(ids)
		for _, id := range ids {
			docs[id] = struct{}{}
		}
		terms = append(terms, TermCount{Term: term, Docs: len(ids)})
	}
	slices.SortFunc(terms, func(a, b TermCount) int {
		if c := cmp.Compare(b.Docs, a.Docs); c != 0 {
			return c
		}
		return cmp.Compare(a.Term, b.Term)
	})
	if top >= 0 && len(terms) > top {
		terms = terms[:top]
	}
	return SnapshotInfo{
		Path:        path,
		Version:     hdr.Version,
		Compression: hdr.Compression.String(),
		CreatedAt:   hdr.CreatedAt,
		RawBytes:    hdr.RawSize,
		StoredBytes: hdr.StoredSize,
		Records:     hdr.Records,
		Terms:       len(latest),
		Documents:   len(docs),
		Postings:    postings,
		TopTerms:    terms,
	}
}
