package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ddmitov/twiga"
)

func optimizeCmd(logger zerolog.Logger) *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Reorder shard tables for faster scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(dataDir)
			if err != nil {
				return err
			}

			engine, err := twiga.Open(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			report, err := engine.Optimize(cmd.Context())
			if err != nil {
				return err
			}

			for table, failErr := range report.Failures {
				logger.Warn().Str("table", table).Err(failErr).Msg("reorder failed, continuing")
			}

			logger.Info().Int("bins_optimized", report.BinsOptimized).Msg("optimization complete")

			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the twiga database files")

	return cmd
}
