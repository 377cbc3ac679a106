package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"todo-htmx/core"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	cmd.Println("Running migrations...")
	if err := core.Migrate(cmd.Context(), cfg.DatabaseURL); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	cmd.Println("Migrations completed successfully")
	return nil
}
