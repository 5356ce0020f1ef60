// Command telexd ingests aviation telexes, parses and enriches them, keeps
// them in an in-memory archive and exports them to GCS and BigQuery.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "telexd",
		Short:         "Telex parsing and enrichment service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("TELEX_CONFIG_FILE"), "path to a YAML config file")

	rootCmd.AddCommand(serveCmd(), parseCmd(), convertReferenceCmd(), seedReferenceCmd(), dlqCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
