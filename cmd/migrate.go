package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"typowatch/internal/config"
	"typowatch/pkg/logger"
)

// migrateCommand constructs the 'migrate' subcommand. It creates the kv table
// and brings the River job tables to the latest version.
func migrateCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrates database to the latest version",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			applied, err := strg.Migrate(ctx)
			if err != nil {
				logger.Fatal(ctx, "could not migrate database", zap.Error(err))
			}
			logger.Info(ctx, "database is up to date", zap.Ints("riverVersionsApplied", applied))
		},
	}

	return cmd
}
