package main

import (
	"fmt"

	"devotion-feed/internal/archive"
	"devotion-feed/internal/config"
	"devotion-feed/internal/feed"

	"github.com/spf13/cobra"
)

func newImportMboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-mbox <path>",
		Short: "Backfill the feed from an mbox archive of devotion emails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			store := feed.NewStore(cfg.Feed.Path, cfg.Feed.MaxEntries)
			stats, err := archive.ImportMbox(args[0], store, cfg.Email.AllowedFrom)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "read %d, added %d, duplicates %d, skipped %d, failed %d\n",
				stats.Read, stats.Added, stats.Duplicates, stats.Skipped, stats.Failed)
			return nil
		},
	}
}
