package commands

import (
	"context"
	"fmt"

	"github.com/benvon/todo-assistant/internal/config"
	"github.com/benvon/todo-assistant/internal/database"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command with up and status subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *database.DB) error {
				if err := db.Migrate(ctx); err != nil {
					return err
				}
				version, err := db.MigrationStatus(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Database is at version %d\n", version)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *database.DB) error {
				version, err := db.MigrationStatus(ctx)
				if err != nil {
					return err
				}
				files, err := database.MigrationFiles()
				if err != nil {
					return err
				}
				fmt.Printf("Current version: %d\n", version)
				fmt.Printf("Embedded migrations: %d\n", len(files))
				return nil
			})
		},
	})
	return cmd
}
