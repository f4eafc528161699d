package main

import (
	"rental-registry/internal/db"

	"github.com/spf13/cobra"
)

func newMigrateCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}

			database, err := db.Connect(cfg, logger)
			if err != nil {
				return err
			}
			sqlDB, err := database.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if err := db.Migrate(cmd.Context(), database); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}
