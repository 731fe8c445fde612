package main

import (
	"fmt"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/trainingbot/core/cmd"
	"github.com/m3rciful/trainingbot/core/database"
	"github.com/m3rciful/trainingbot/core/logger"
	"github.com/m3rciful/trainingbot/internal/config"
	"github.com/m3rciful/trainingbot/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := corecmd.ResolveConfigPath(corecmd.Options{
			ConfigPath:        configPath,
			DefaultConfigPath: defaultConfigPath,
		})
		if err != nil {
			return err
		}
		cfg, err := config.LoadStorage(path)
		if err != nil {
			return err
		}
		if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
			return err
		}
		defer logger.Shutdown()

		if err := database.RunMigrations(cmd.Context(), cfg.Database, migrations.FS); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
