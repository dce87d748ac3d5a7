package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the PostgreSQL schema",
	RunE: func(_ *cobra.Command, _ []string) error {
		return migrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func migrate() error {
	ctx := context.Background()
	logger, config := setup()

	store, err := openPostgres(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("opening the database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating the database: %w", err)
	}

	logger.Info("database migrated")
	return nil
}
