// Package indexstore is the sharded inverted-index store (the "Index
// DB"): one DuckDB file holding, per bin, a hash dictionary
// (dict_bin_N) and a postings table (postings_bin_N), plus a global
// word_counts table used as the term_frequency denominator.
package indexstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/ddmitov/twiga/internal/shard"
)

//go:embed schema.sql
var schemaDDL string

// ErrNilDB is returned when a Store is built without a connection.
var ErrNilDB = errors.New("indexstore: nil db")

// Occurrence is one (hash, text, position) triple produced by the
// tokenize+hash phase of the batch indexer.
type Occurrence struct {
	Hash     string
	TextID   int64
	Position int32
}

// Store wraps the Index DB's *sql.DB.
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
		return nil, fmt.Errorf("indexstore: bins must be >= 1, got %d", bins)
	}

	return &Store{db: db, bins: bins}, nil
}

// Ensure creates the global sequence, word_counts table, and every
// per-bin dict_bin_N / postings_bin_N table pair, idempotently.
func (s *Store) Ensure(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("indexstore: schema: %w", err)
	}

	for bin := 1; bin <= s.bins; bin++ {
		ddl := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS dict_bin_%d (
				hash    VARCHAR PRIMARY KEY,
				hash_id BIGINT UNIQUE
			);
			CREATE TABLE IF NOT EXISTS postings_bin_%d (
				hash_id  BIGINT,
				text_id  BIGINT,
				position INTEGER
			);
		`, bin, bin)

		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("indexstore: bin %d schema: %w", bin, err)
		}
	}

	return nil
}

// WriteWordCounts upserts each text's total word count, used later as
// term_frequency's denominator.
func (s *Store) WriteWordCounts(ctx context.Context, counts map[int64]int) error {
	if len(counts) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(counts))
	args := make([]any, 0, len(counts)*2)
	i := 0

	for textID, total := range counts {
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
		args = append(args, textID, total)
		i++
	}

	query := fmt.Sprintf(`
		INSERT INTO word_counts (text_id, words_total)
		VALUES %s
		ON CONFLICT (text_id) DO UPDATE SET words_total = EXCLUDED.words_total
	`, strings.Join(placeholders, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("indexstore: word_counts: %w", err)
	}

	return nil
}

// WriteShard writes one shard's occurrences transactionally: any hash
// not yet in that bin's dictionary is assigned the next value from the
// global hash_id sequence, then every occurrence is inserted into the
// bin's postings table joined against the now-complete dictionary —
// mirroring twiga_core_index.py's twiga_index_table_writer (dedup via
// EXCEPT-equivalent lookup, NEXTVAL assignment, dict insert, postings
// insert via join) as one atomic per-bin transaction.
func (s *Store) WriteShard(ctx context.Context, bin int, occurrences []Occurrence) error {
	if len(occurrences) == 0 {
		return nil
	}

	distinct := distinctHashes(occurrences)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("indexstore: bin %d begin: %w", bin, err)
	}
	defer tx.Rollback()

	known, err := knownHashes(ctx, tx, bin, distinct)
	if err != nil {
		return fmt.Errorf("indexstore: bin %d known hashes: %w", bin, err)
	}

	var unknown []string

	for _, h := range distinct {
		if _, ok := known[h]; !ok {
			unknown = append(unknown, h)
		}
	}

	if len(unknown) > 0 {
		if err := insertUnknownHashes(ctx, tx, bin, unknown); err != nil {
			return fmt.Errorf("indexstore: bin %d dict insert: %w", bin, err)
		}

		known, err = knownHashes(ctx, tx, bin, distinct)
		if err != nil {
			return fmt.Errorf("indexstore: bin %d reload dict: %w", bin, err)
		}
	}

	if err := insertPostings(ctx, tx, bin, occurrences, known); err != nil {
		return fmt.Errorf("indexstore: bin %d postings insert: %w", bin, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("indexstore: bin %d commit: %w", bin, err)
	}

	return nil
}

func distinctHashes(occurrences []Occurrence) []string {
	seen := make(map[string]struct{}, len(occurrences))
	out := make([]string, 0, len(occurrences))

	for _, o := range occurrences {
		if _, ok := seen[o.Hash]; ok {
			continue
		}

		seen[o.Hash] = struct{}{}
		out = append(out, o.Hash)
	}

	return out
}

// querier is satisfied by both *sql.Tx (writes) and *sql.DB (reads),
// so knownHashes runs the same lookup in either context.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func knownHashes(ctx context.Context, q querier, bin int, hashes []string) (map[string]int64, error) {
	placeholders, args := inClause(hashes)

	query := fmt.Sprintf("SELECT hash, hash_id FROM dict_bin_%d WHERE hash IN (%s)", bin, placeholders)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	known := make(map[string]int64, len(hashes))

	for rows.Next() {
		var h string
		var id int64

		if err := rows.Scan(&h, &id); err != nil {
			return nil, err
		}

		known[h] = id
	}

	return known, rows.Err()
}

func insertUnknownHashes(ctx context.Context, tx *sql.Tx, bin int, hashes []string) error {
	placeholders := make([]string, len(hashes))
	args := make([]any, len(hashes))

	for i, h := range hashes {
		placeholders[i] = fmt.Sprintf("($%d, nextval('hash_id_sequence'))", i+1)
		args[i] = h
	}

	query := fmt.Sprintf(
		"INSERT INTO dict_bin_%d (hash, hash_id) VALUES %s",
		bin, strings.Join(placeholders, ", "),
	)

	_, err := tx.ExecContext(ctx, query, args...)

	return err
}

func insertPostings(ctx context.Context, tx *sql.Tx, bin int, occurrences []Occurrence, known map[string]int64) error {
	placeholders := make([]string, 0, len(occurrences))
	args := make([]any, 0, len(occurrences)*3)

	for i, o := range occurrences {
		hashID, ok := known[o.Hash]
		if !ok {
			return fmt.Errorf("hash %s missing from dictionary after assignment", o.Hash)
		}

		base := i * 3
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3))
		args = append(args, hashID, o.TextID, o.Position)
	}

	query := fmt.Sprintf(
		"INSERT INTO postings_bin_%d (hash_id, text_id, position) VALUES %s",
		bin, strings.Join(placeholders, ", "),
	)

	_, err := tx.ExecContext(ctx, query, args...)

	return err
}

// ReadIndex resolves each requested hash to its bin, fetches every
// matching dictionary entry and postings row, and returns the result
// as an Arrow-like table plus the hash -> hash_id map for hashes that
// are actually present in the index.
func (s *Store) ReadIndex(ctx context.Context, hashes []string) (*Postings, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	byBin := make(map[int][]string, s.bins)
	distinct := distinctStrings(hashes)

	for _, h := range distinct {
		bin := shard.OfHash(h, s.bins)
		byBin[bin] = append(byBin[bin], h)
	}

	known := make(map[string]int64)
	builder := newPostingsBuilder()
	rowsWritten := false

	for bin, binHashes := range byBin {
		hashIDs, err := knownHashes(ctx, s.db, bin, binHashes)
		if err != nil {
			return nil, fmt.Errorf("indexstore: read bin %d dict: %w", bin, err)
		}

		for h, id := range hashIDs {
			known[h] = id
		}

		if len(hashIDs) == 0 {
			continue
		}

		ids := make([]int64, 0, len(hashIDs))
		for _, id := range hashIDs {
			ids = append(ids, id)
		}

		placeholders, args := inClauseInt64(ids)

		query := fmt.Sprintf(
			"SELECT hash_id, text_id, position FROM postings_bin_%d WHERE hash_id IN (%s)",
			bin, placeholders,
		)

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("indexstore: read bin %d postings: %w", bin, err)
		}

		for rows.Next() {
			var hashID, textID int64
			var position int32

			if err := rows.Scan(&hashID, &textID, &position); err != nil {
				rows.Close()
				return nil, fmt.Errorf("indexstore: scan bin %d: %w", bin, err)
			}

			builder.append(hashID, textID, position)
			rowsWritten = true
		}

		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("indexstore: rows bin %d: %w", bin, err)
		}

		rows.Close()
	}

	record := builder.finish()

	if !rowsWritten {
		record.Release()
		return &Postings{Known: known}, nil
	}

	return &Postings{Record: record, Known: known}, nil
}

// ReadWordsTotal fetches words_total for a set of text ids.
func (s *Store) ReadWordsTotal(ctx context.Context, textIDs []int64) (map[int64]int, error) {
	if len(textIDs) == 0 {
		return nil, nil
	}

	placeholders, args := inClauseInt64(textIDs)

	query := fmt.Sprintf("SELECT text_id, words_total FROM word_counts WHERE text_id IN (%s)", placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("indexstore: words_total: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int, len(textIDs))

	for rows.Next() {
		var id int64
		var total int

		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("indexstore: scan words_total: %w", err)
		}

		out[id] = total
	}

	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}

func inClause(values []string) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))

	for i, v := range values {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = v
	}

	return strings.Join(placeholders, ", "), args
}

func inClauseInt64(values []int64) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))

	for i, v := range values {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = v
	}

	return strings.Join(placeholders, ", "), args
}

func distinctStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
