// Command outboxctl is the operator CLI for the notification outbox: schema
// migrations, enqueueing jobs by hand, inspecting a job and editing provider
// settings.
package main

import (
	"fmt"
	"os"

	"github.com/kursadbilgin/notify-outbox/internal/config"
	"github.com/kursadbilgin/notify-outbox/internal/infra/postgresql"
	"github.com/kursadbilgin/notify-outbox/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app carries what every subcommand needs once the root pre-run has connected.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func preRun(a *app) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger, err := observability.NewLogger(cfg.LogLevel)
		if err != nil {
			return err
		}

		db, err := postgresql.NewPostgres(cfg.DatabaseDSN, logger)
		if err != nil {
			return err
		}

		a.cfg = cfg
		a.logger = logger
		a.db = db
		return nil
	}
}

func postRun(a *app) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if a.logger != nil {
			_ = a.logger.Sync()
		}
		if a.db == nil {
			return nil
		}
		sqlDB, err := a.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:                "outboxctl",
		Short:              "Operate the notification outbox",
		SilenceUsage:       true,
		PersistentPreRunE:  preRun(a),
		PersistentPostRunE: postRun(a),
	}

	rootCmd.AddCommand(migrateCommands(a))
	rootCmd.AddCommand(enqueueCommand(a))
	rootCmd.AddCommand(getCommand(a))
	rootCmd.AddCommand(settingsCommands(a))

	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
