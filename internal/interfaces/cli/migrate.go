package cli

import (
	"github.com/spf13/cobra"

	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/postgres"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			return postgres.Migrate(cfg.Database, logger)
		},
	}
}
