// Package textstore is the sharded document payload store (the "Text
// DB"): one DuckDB file holding N bin tables of (text_id, title, date,
// text), each document routed by shard.OfDoc.
package textstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ddmitov/twiga/internal/shard"
)

//go:embed schema.sql
var schemaDDL string

// ErrNilDB is returned when a Store is built without a connection.
var ErrNilDB = errors.New("textstore: nil db")

// Document is one text payload queued for writing.
type Document struct {
	Title string
	Date  time.Time
	Text  string
}

// Text is a stored document enriched with its assigned identifier.
type Text struct {
	TextID int64
	Title  string
	Date   time.Time
	Text   string
}

// Ranked carries a query's ranking output into ReadTexts: the text it
// matched, how many query words it matched, and out of how many total.
type Ranked struct {
	TextID        int64
	MatchingWords int
	WordsTotal    int
}

// Enriched is a Ranked row joined back against its stored text,
// ordered by term frequency descending — matches twiga_text.py's
// twiga_text_reader output shape.
type Enriched struct {
	Ranked
	TermFrequency float64
	Title         string
	Date          time.Time
	Text          string
}

// Store wraps the Text DB's *sql.DB.
type Store struct {
	db   *sql.DB
	bins int
}

// New wraps an open DuckDB connection as a Store with bins shards.
func New(db *sql.DB, bins int) (*Store, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	if bins < 1 {
		return nil, fmt.Errorf("textstore: bins must be >= 1, got %d", bins)
	}

	return &Store{db: db, bins: bins}, nil
}

// Ensure creates the global sequence, meta table, and every per-bin
// texts_bin_N table, idempotently.
func (s *Store) Ensure(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("textstore: schema: %w", err)
	}

	for bin := 1; bin <= s.bins; bin++ {
		ddl := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS texts_bin_%d (
				text_id BIGINT PRIMARY KEY,
				title   VARCHAR,
				date    DATE,
				text    VARCHAR
			)
		`, bin)

		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("textstore: bin %d schema: %w", bin, err)
		}
	}

	return nil
}

// WriteBatch assigns each document the next text_id from the global
// sequence, partitions the batch by shard.OfDoc, and writes every
// partition's rows to its texts_bin_N table inside one transaction.
// Returned Texts are in the same order as docs.
func (s *Store) WriteBatch(ctx context.Context, docs []Document) ([]Text, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	ids, err := s.nextTextIDs(ctx, len(docs))
	if err != nil {
		return nil, fmt.Errorf("textstore: sequence: %w", err)
	}

	texts := make([]Text, len(docs))
	byBin := make(map[int][]Text, s.bins)

	for i, doc := range docs {
		t := Text{TextID: ids[i], Title: doc.Title, Date: doc.Date, Text: doc.Text}
		texts[i] = t

		bin := shard.OfDoc(t.TextID, s.bins)
		byBin[bin] = append(byBin[bin], t)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("textstore: begin: %w", err)
	}
	defer tx.Rollback()

	for bin, rows := range byBin {
		if err := insertBin(ctx, tx, bin, rows); err != nil {
			return nil, fmt.Errorf("textstore: write bin %d: %w", bin, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("textstore: commit: %w", err)
	}

	return texts, nil
}

func insertBin(ctx context.Context, tx *sql.Tx, bin int, rows []Text) error {
	placeholders := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*4)

	for i, r := range rows {
		base := i * 4
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		args = append(args, r.TextID, r.Title, r.Date, r.Text)
	}

	query := fmt.Sprintf(
		"INSERT INTO texts_bin_%d (text_id, title, date, text) VALUES %s",
		bin, strings.Join(placeholders, ", "),
	)

	_, err := tx.ExecContext(ctx, query, args...)

	return err
}

// nextTextIDs draws n consecutive-ish values from text_id_sequence in
// a single round trip, mirroring the batch NEXTVAL column the original
// demo indexer selects alongside each incoming row.
func (s *Store) nextTextIDs(ctx context.Context, n int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT nextval('text_id_sequence') FROM range($1::BIGINT)", int64(n))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0, n)

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ReadTexts fetches the stored payload for each ranked text_id,
// partitioned by bin the same way twiga_text.py's twiga_text_reader
// does, and joins it back against the ranking so the result carries
// both the score and the text. Returns nil if nothing matched.
func (s *Store) ReadTexts(ctx context.Context, ranked []Ranked) ([]Enriched, error) {
	if len(ranked) == 0 {
		return nil, nil
	}

	byID := make(map[int64]Ranked, len(ranked))
	byBin := make(map[int][]int64, s.bins)

	for _, r := range ranked {
		byID[r.TextID] = r
		bin := shard.OfDoc(r.TextID, s.bins)
		byBin[bin] = append(byBin[bin], r.TextID)
	}

	var out []Enriched

	for bin, ids := range byBin {
		placeholders := make([]string, len(ids))
		args := make([]any, len(ids))

		for i, id := range ids {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = id
		}

		query := fmt.Sprintf(
			"SELECT text_id, title, date, text FROM texts_bin_%d WHERE text_id IN (%s)",
			bin, strings.Join(placeholders, ", "),
		)

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("textstore: read bin %d: %w", bin, err)
		}

		for rows.Next() {
			var t Text

			if err := rows.Scan(&t.TextID, &t.Title, &t.Date, &t.Text); err != nil {
				rows.Close()
				return nil, fmt.Errorf("textstore: scan bin %d: %w", bin, err)
			}

			r := byID[t.TextID]

			freq := 0.0
			if r.WordsTotal > 0 {
				freq = float64(r.MatchingWords) / float64(r.WordsTotal)
			}

			out = append(out, Enriched{
				Ranked:        r,
				TermFrequency: freq,
				Title:         t.Title,
				Date:          t.Date,
				Text:          t.Text,
			})
		}

		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("textstore: rows bin %d: %w", bin, err)
		}

		rows.Close()
	}

	if len(out) == 0 {
		return nil, nil
	}

	sortByTermFrequencyDesc(out)

	return out, nil
}

func sortByTermFrequencyDesc(rows []Enriched) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TermFrequency > rows[j].TermFrequency
	})
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}
