package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	pg "certportal/internal/adapters/postgres"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if log == nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if cfg.Postgres.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required to migrate")
	}

	db, err := pg.Connect(cmd.Context(), cfg.Postgres.DatabaseURL, cfg.Postgres.MaxConns)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(cmd.Context()); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
