package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/busreg/internal/config"
	"github.com/JonMunkholm/busreg/internal/store"
)

func newMigrateCmd() *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		Long: `Apply every pending migration to the database named by --database-url
(default: $DATABASE_URL, then $DB_URL) and print the resulting schema version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbURL == "" {
				dbURL = os.Getenv("DB_URL")
			}
			if dbURL == "" {
				return errors.New("database URL is required: set --database-url or DATABASE_URL")
			}

			ctx := cmd.Context()
			pool, err := store.Connect(ctx, config.DatabaseConfig{URL: dbURL, MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.Migrate(ctx, pool); err != nil {
				return err
			}
			version, err := store.SchemaVersion(ctx, pool)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "database is at schema version %d\n", version)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	return cmd
}
