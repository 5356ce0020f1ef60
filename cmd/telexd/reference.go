package main

import (
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/spf13/cobra"

	"github.com/illmade-knight/go-telex/pkg/config"
	"github.com/illmade-knight/go-telex/pkg/reference"
)

func convertReferenceCmd() *cobra.Command {
	var kind, out string
	cmd := &cobra.Command{
		Use:   "convert-reference <file.dat>",
		Short: "Convert an OpenFlights .dat file into the JSON reference format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := reference.ConvertDat(in, w, reference.Kind(kind))
			if err != nil {
				return fmt.Errorf("converting %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "converted %d %s rows\n", n, kind)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "airlines, airports, aircraft or countries")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

// seedReferenceCmd copies the local JSON tables into Firestore so the remote
// backend can serve them.
func seedReferenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-reference",
		Short: "Upload the local reference tables to Firestore",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logger := cfg.Log.Logger()
			ctx := cmd.Context()

			fs, err := firestore.NewClient(ctx, cfg.Reference.Remote.ProjectID)
			if err != nil {
				return fmt.Errorf("firestore.NewClient: %w", err)
			}
			defer fs.Close()

			local := reference.Load(cfg.Reference.Paths, logger)
			return reference.Seed(ctx, local, cfg.Reference.Remote, fs, logger)
		},
	}
}
