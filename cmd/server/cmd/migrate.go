package cmd

import (
	"fmt"

	"github.com/Togather-Foundation/agenda/internal/config"
	"github.com/Togather-Foundation/agenda/internal/storage/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded database migrations",
		Long: `Apply or roll back the SQL migrations embedded in the binary against
DATABASE_URL. Only the postgres storage driver has migrations.`,
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := migrationURL(global)
			if err != nil {
				return err
			}
			if err := postgres.MigrateUp(url); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := migrationURL(global)
			if err != nil {
				return err
			}
			if err := postgres.MigrateDown(url, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

func migrationURL(global *globalOptions) (string, error) {
	cfg, err := loadConfig(global)
	if err != nil {
		return "", fmt.Errorf("config error: %w", err)
	}
	if cfg.Database.Driver != config.StorageDriverPostgres {
		return "", fmt.Errorf("migrations require STORAGE_DRIVER=%s, got %q", config.StorageDriverPostgres, cfg.Database.Driver)
	}
	return cfg.Database.URL, nil
}
