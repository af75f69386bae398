package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/webarchive-ingest/internal/storage"
)

// newListCmd creates the 'list' subcommand, which prints the archive files a
// run would process.
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the archive files in the configured bucket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			src, closer, err := storage.Open(cmd.Context(), sourceConfig(e.cfg.Source))
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer func() {
				if cerr := closer.Close(); cerr != nil {
					e.logger.Warn("source close failed", zap.Error(cerr))
				}
			}()

			items, err := src.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list archive files: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, item := range items {
				if _, err := fmt.Fprintf(out, "%s\t%d\n", item.Key, item.Size); err != nil {
					return err
				}
			}
			e.logger.Info("listed archive files", zap.Int("count", len(items)))
			return nil
		},
	}
}
