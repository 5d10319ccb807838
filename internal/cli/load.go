package cli

import (
	"github.com/spf13/cobra"

	"github.com/storewise/storewise/internal/warehouse"
)

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load parquet/CSV files from the data directory into the warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			registry, err := loadRegistry()
			if err != nil {
				return err
			}

			wh, err := warehouse.Open(ctx, warehouse.Config{Path: cfg.Database, Logger: logger})
			if err != nil {
				return err
			}
			defer func() { _ = wh.Close() }()

			if err := wh.LoadDir(ctx, cfg.DataDir); err != nil {
				return err
			}
			if err := wh.HealthCheck(ctx, registry.TableNames()); err != nil {
				return err
			}

			logger.Info("warehouse ready", "database", cfg.Database)
			return nil
		},
	}
}
