package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ddmitov/twiga"
)

// dateLayout is the newline-delimited JSON file's date format, the
// same one the original dataset's published_date column serializes as.
const dateLayout = "2006-01-02"

// indexRecord is one line of the newline-delimited JSON file this
// command reads. The real streaming-news ingester is out of scope
// (see spec's Non-goals); this is the thin stand-in loader spec's
// external interfaces call "scripts".
type indexRecord struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Text  string `json:"text"`
}

func indexCmd(logger zerolog.Logger) *cobra.Command {
	var dataDir string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "index <jsonl-file>",
		Short: "Index documents from a newline-delimited JSON file",
		Args:  cobra.ExactArgs(1),
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

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("cli: open %s: %w", args[0], err)
			}
			defer f.Close()

			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

			var batch []twiga.Document
			totalTexts, totalWords := 0, 0

			flush := func() error {
				if len(batch) == 0 {
					return nil
				}

				result, err := engine.WriteBatch(cmd.Context(), batch)
				if err != nil {
					return err
				}

				totalTexts += result.TextsWritten
				totalWords += result.WordsTotal

				logger.Info().
					Int("texts", result.TextsWritten).
					Int("words", result.WordsTotal).
					Int("hashes", result.HashesTotal).
					Msg("batch indexed")

				batch = batch[:0]

				return nil
			}

			for scanner.Scan() {
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}

				var rec indexRecord
				if err := json.Unmarshal(line, &rec); err != nil {
					return fmt.Errorf("cli: parse line: %w", err)
				}

				date, err := time.Parse(dateLayout, rec.Date)
				if err != nil {
					return fmt.Errorf("cli: parse date %q: %w", rec.Date, err)
				}

				batch = append(batch, twiga.Document{Title: rec.Title, Date: date, Text: rec.Text})

				if batchSize > 0 && len(batch) >= batchSize {
					if err := flush(); err != nil {
						return err
					}
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("cli: scan: %w", err)
			}

			if err := flush(); err != nil {
				return err
			}

			logger.Info().Int("total_texts", totalTexts).Int("total_words", totalWords).Msg("indexing complete")

			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the twiga database files")
	cmd.Flags().IntVar(&batchSize, "batch-size", 5000, "documents per write batch")

	return cmd
}
