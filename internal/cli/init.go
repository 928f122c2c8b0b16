package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ddmitov/twiga"
)

func initCmd(logger zerolog.Logger) *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the index and text database schema",
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

			if err := engine.CreateIndex(cmd.Context()); err != nil {
				return err
			}

			logger.Info().
				Str("data_dir", cfg.DataDir).
				Int("index_bins", cfg.IndexBins).
				Int("text_bins", cfg.TextBins).
				Msg("index created")

			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the twiga database files")

	return cmd
}
