package main

import (
	"github.com/kursadbilgin/notify-outbox/internal/infra/postgresql/migrations"
	"github.com/spf13/cobra"
)

func migrateCommands(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the outbox schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrations.Migrate(a.db); err != nil {
				return err
			}
			a.logger.Info("database migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrations.RollbackLast(a.db); err != nil {
				return err
			}
			a.logger.Info("last database migration rolled back")
			return nil
		},
	})

	return cmd
}
