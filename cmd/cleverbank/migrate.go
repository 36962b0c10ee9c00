package main

import (
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/clever-bank/clever_bank/internal/infra"
)

func migrateCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back the database schema",
	}
	cmd.AddCommand(migrateDirection(c, "up", migrate.Up))
	cmd.AddCommand(migrateDirection(c, "down", migrate.Down))
	return cmd
}

func migrateDirection(c *cli, use string, dir migrate.MigrationDirection) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("run migrations %s", use),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrations")
			}
			pool, err := infra.NewPostgresPool(cmd.Context(), c.cfg.DatabaseURL, c.cfg.AppName)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := infra.Migrate(pool, dir, steps)
			if err != nil {
				return err
			}
			c.logger.Info("migrations applied", "direction", use, "count", n)
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migrations %s\n", n, use)
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "maximum migrations to apply (0 = all)")
	return cmd
}
