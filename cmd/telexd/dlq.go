package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/illmade-knight/go-telex/pkg/config"
	"github.com/illmade-knight/go-telex/pkg/dlq"
)

// dlqCmd inspects the dead letter directory of a stopped or running service.
func dlqCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "List or purge dead-lettered telexes",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Print dead letters as JSON lines, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			return runDLQList(cfg, limit, cmd.OutOrStdout())
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 0, "maximum letters to print (0 prints all)")

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete every dead letter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			return runDLQPurge(cfg, cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(list, purge)
	return cmd
}

func openQueue(cfg *config.Config, logger zerolog.Logger) (*dlq.Queue, error) {
	dir := cfg.Sinks.DLQDir
	if dir == "" {
		return nil, errors.New("sinks.dlq_dir is not set")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("dead letter directory: %w", err)
	}
	return dlq.NewQueue(dir, logger)
}

func runDLQList(cfg *config.Config, limit int, out io.Writer) error {
	q, err := openQueue(cfg, cfg.Log.Logger())
	if err != nil {
		return err
	}
	letters, err := q.List(limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, l := range letters {
		if err := enc.Encode(l); err != nil {
			return err
		}
	}
	return nil
}

func runDLQPurge(cfg *config.Config, out io.Writer) error {
	q, err := openQueue(cfg, cfg.Log.Logger())
	if err != nil {
		return err
	}
	n, err := q.Purge()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "purged %d dead letters\n", n)
	return err
}
