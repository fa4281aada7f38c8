package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"certportal/internal/config"
	"certportal/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "certportal",
		Short:         "Certificate verification portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the verification portal (default)",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations for the postgres backend",
			Args:  cobra.NoArgs,
			RunE:  runMigrate,
		},
		newHashPasswordCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger. A validation error is
// returned alongside a usable config so commands can decide how strict to be.
func setup() (config.Config, *zap.Logger, error) {
	cfg, cfgErr := config.Load()
	log, err := logger.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		return cfg, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, cfgErr
}
