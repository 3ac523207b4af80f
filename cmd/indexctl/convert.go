package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
)

func newConvertCmd(g *globals) *cobra.Command {
	var compression string

	cmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Re-encode a snapshot with another compression codec",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := segment.ParseCompression(compression)
			if err != nil {
				return err
			}
			records, hdr, err := segment.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := segment.WriteFile(args[1], records, codec); err != nil {
				return err
			}
			_, out, err := segment.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("verifying %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d bytes) -> %s (%s, %d bytes), %d records\n",
				args[0], hdr.Compression, hdr.StoredSize,
				args[1], out.Compression, out.StoredSize, out.Records)
			return nil
		},
	}

	cmd.Flags().StringVar(&compression, "compression", "zstd", "Target codec: none, lz4, zstd")
	return cmd
}
