package main

import (
	"context"
	"fmt"

	"github.com/Comcast/fernspiel/config"
	"github.com/Comcast/fernspiel/service"

	"github.com/spf13/cobra"
)

func newJournalCmd() *cobra.Command {
	var (
		configPath string
		n          int
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the latest journaled transitions, oldest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			if cfg.Journal.Kind == config.JournalNone {
				return fmt.Errorf("no journal configured in %s", configPath)
			}
			j, err := service.NewJournal(&cfg.Journal)
			if err != nil {
				return err
			}
			if err = j.Open(ctx); err != nil {
				return err
			}
			defer j.Close(ctx)

			es, err := j.Recent(ctx, n)
			if err != nil {
				return err
			}
			for _, e := range es {
				fmt.Fprintln(cmd.OutOrStdout(), compactJS(e))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	cmd.Flags().IntVarP(&n, "n", "n", 20, "how many entries")
	return cmd
}
