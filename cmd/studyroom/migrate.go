package main

import (
	"errors"
	"fmt"

	"github.com/cwrk-planet/studyroom/config"
	"github.com/cwrk-planet/studyroom/internal/postgres"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <up|down|status|...> [args]",
	Short: "Run database migrations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is empty")
		}
		initLogger(cfg)
		return postgres.Migrate(cmd.Context(), cfg.Postgres.DSN, args[0], args[1:]...)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
