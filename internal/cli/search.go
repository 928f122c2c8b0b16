package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ddmitov/twiga"
)

func searchCmd(logger zerolog.Logger) *cobra.Command {
	var dataDir string
	var limit int
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index and print ranked matches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(dataDir)
			if err != nil {
				return err
			}

			mode, err := parseMode(modeFlag)
			if err != nil {
				return err
			}

			engine, err := twiga.Open(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			query := strings.Join(args, " ")

			results, err := engine.Search(cmd.Context(), query, mode, limit)
			if err != nil {
				if errors.Is(err, twiga.ErrQueryEmpty) {
					fmt.Fprintln(os.Stderr, "query has no searchable words")
					return nil
				}

				return err
			}

			if len(results) == 0 {
				fmt.Println("no matches")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FREQUENCY\tMATCHED\tTOTAL\tTITLE")

			for _, r := range results {
				fmt.Fprintf(w, "%.4f\t%d\t%d\t%s\n", r.TermFrequency, r.MatchingWords, r.WordsTotal, r.Title)
			}

			logger.Debug().Int("results", len(results)).Msg("search complete")

			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the twiga database files")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results, 0 for unlimited")
	cmd.Flags().StringVar(&modeFlag, "mode", "exact-phrase", "ranking mode: single-word, any-position, or exact-phrase")

	return cmd
}

func parseMode(s string) (twiga.Mode, error) {
	switch s {
	case "single-word":
		return twiga.ModeSingleWord, nil
	case "any-position":
		return twiga.ModeAnyPosition, nil
	case "exact-phrase":
		return twiga.ModeExactPhrase, nil
	default:
		return 0, fmt.Errorf("cli: unknown mode %q", s)
	}
}
