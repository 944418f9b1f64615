package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dakheel-code/arena-run-sub001/internal/config"
	"github.com/Dakheel-code/arena-run-sub001/internal/repository"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := repository.Open(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer func() { _ = sqlDB.Close() }()
			if err := repository.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
