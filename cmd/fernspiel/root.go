package main

import (
	"os"

	"github.com/Comcast/fernspiel/util/logger"

	"github.com/spf13/cobra"
)

var (
	// logLevel overrides the configured log level.
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "fernspiel",
		Short: "Drive a telephone installation from a phonebook.",
		Long: `fernspiel interprets a phonebook (a state machine of rings, sounds and
dialed symbols) against events from stdin, MQTT, a remote control
server and cron schedules.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if logLevel == "" {
				return nil
			}
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return errBadLogLevel(logLevel)
			}
			logger.SetLevel(level)
			return nil
		},
	}
)

// Execute runs the CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newAnalyzeCmd(),
		newDotCmd(),
		newMermaidCmd(),
		newHTMLCmd(),
		newExpectCmd(),
		newCtlCmd(),
		newPanelCmd(),
		newJournalCmd(),
	)
}
