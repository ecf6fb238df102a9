package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, closeLog, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closeLog() }()

		ctx, cancel := handleSignals(cmd.Context())
		defer cancel()

		s, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if err := s.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("migrations applied", "driver", cfg.Databases.Driver)
		return nil
	},
}
