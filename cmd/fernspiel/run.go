package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Comcast/fernspiel/config"
	"github.com/Comcast/fernspiel/service"
	"github.com/Comcast/fernspiel/util/logger"

	"github.com/spf13/cobra"
)

type errBadLogLevel string

func (e errBadLogLevel) Error() string {
	return fmt.Sprintf("invalid log level %q", string(e))
}

func newRunCmd() *cobra.Command {
	var (
		configPath string
		cfg        config.Config
		stdio      bool
		haltOnEOF  bool
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "run [book]",
		Short: "Run a phonebook.",
		Long: `Runs the phonebook given as an argument or named in the configuration.

Flags override the configuration.  Without any configuration file,
"run book.yaml --stdio" reads dial strings from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			ctx = logger.WithName(ctx, "fernspiel")

			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load settings: %w", err)
				}
				cfg = *loaded
			}
			if 0 < len(args) {
				cfg.Book = args[0]
			}
			if cmd.Flags().Changed("stdio") {
				cfg.Stdio = stdio
			}
			if cmd.Flags().Changed("halt-on-eof") {
				cfg.HaltOnEOF = haltOnEOF
			}
			if listen != "" {
				cfg.Remote.Listen = listen
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}

			s, err := service.New(ctx, &cfg, os.Stdin, os.Stdout)
			if err != nil {
				return err
			}
			return s.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "read dial strings from stdin and print transitions")
	cmd.Flags().BoolVar(&haltOnEOF, "halt-on-eof", false, "shut down at the end of stdin")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "remote control address (e.g. :8080)")

	return cmd
}
