package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vytor/estimatic/internal/config"
	"github.com/vytor/estimatic/internal/db"
	"github.com/vytor/estimatic/internal/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	logger.SetDefault(log)

	// Open applies pending migrations as part of startup.
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.ApplyMigrations(context.Background()); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
