package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/illmade-knight/go-telex/pkg/config"
)

// parseCmd runs one telex through the pipeline without archiving it.
func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a telex from a file or stdin and print the record as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runParse(cmd, cfg, in, cmd.OutOrStdout())
		},
	}
}

func runParse(cmd *cobra.Command, cfg *config.Config, in io.Reader, out io.Writer) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading telex: %w", err)
	}
	// Parse-only runs never dead-letter to disk.
	cfg.Sinks.DLQDir = ""
	cfg.Sinks.DeadLetterTopic = ""

	app := NewApp(cfg, cfg.Log.Logger())
	defer app.Close()
	if err := app.buildCore(cmd.Context()); err != nil {
		return err
	}
	rec, err := app.processor.Parse(cmd.Context(), string(raw))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
