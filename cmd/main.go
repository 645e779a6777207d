package main

import (
	"os"

	"devotion-feed/internal/logging"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Log.Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "devotion-feed",
		Short:         "Collects daily devotion broadcasts and serves them to the website widget",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration")

	root.AddCommand(newServeCmd(), newParseCmd(), newImportMboxCmd())
	return root
}
