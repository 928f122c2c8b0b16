package searchengine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ddmitov/twiga/internal/corpus/indexstore"
	"github.com/ddmitov/twiga/internal/corpus/textstore"
)

// insertChunkSize bounds how many rows go into one parameterized
// VALUES statement when loading a temp table.
const insertChunkSize = 500

func loadPostingsTemp(ctx context.Context, conn *sql.Conn, postings *indexstore.Postings) error {
	// CREATE OR REPLACE: pooled *sql.Conn instances are reused across
	// Rank calls, and DuckDB never drops a TEMPORARY table when a
	// connection is merely returned to the pool, so a bare CREATE would
	// fail on the second query to land on the same physical connection.
	if _, err := conn.ExecContext(ctx, `
		CREATE OR REPLACE TEMPORARY TABLE postings_tmp (
			hash_id  BIGINT,
			text_id  BIGINT,
			position INTEGER
		)
	`); err != nil {
		return err
	}

	type row struct {
		hashID, textID int64
		position       int32
	}

	var rows []row

	postings.Rows(func(hashID, textID int64, position int32) {
		rows = append(rows, row{hashID, textID, position})
	})

	return chunked(rows, func(chunk []row) error {
		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*3)

		for i, r := range chunk {
			base := i * 3
			placeholders[i] = fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3)
			args = append(args, r.hashID, r.textID, r.position)
		}

		query := "INSERT INTO postings_tmp (hash_id, text_id, position) VALUES " + strings.Join(placeholders, ", ")

		_, err := conn.ExecContext(ctx, query, args...)

		return err
	})
}

func loadDistinctHashesTemp(ctx context.Context, conn *sql.Conn, hashIDs []int64) error {
	if _, err := conn.ExecContext(ctx, `CREATE OR REPLACE TEMPORARY TABLE query_hashes_tmp (hash_id BIGINT)`); err != nil {
		return err
	}

	return chunked(hashIDs, func(chunk []int64) error {
		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))

		for i, id := range chunk {
			placeholders[i] = fmt.Sprintf("($%d)", i+1)
			args[i] = id
		}

		query := "INSERT INTO query_hashes_tmp (hash_id) VALUES " + strings.Join(placeholders, ", ")

		_, err := conn.ExecContext(ctx, query, args...)

		return err
	})
}

func loadQueryOffsetsTemp(ctx context.Context, conn *sql.Conn, offsets []offsetRow) error {
	if _, err := conn.ExecContext(ctx, `
		CREATE OR REPLACE TEMPORARY TABLE query_offsets_tmp (
			token_index INTEGER,
			hash_id     BIGINT
		)
	`); err != nil {
		return err
	}

	return chunked(offsets, func(chunk []offsetRow) error {
		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*2)

		for i, o := range chunk {
			base := i * 2
			placeholders[i] = fmt.Sprintf("($%d, $%d)", base+1, base+2)
			args = append(args, o.tokenIndex, o.hashID)
		}

		query := "INSERT INTO query_offsets_tmp (token_index, hash_id) VALUES " + strings.Join(placeholders, ", ")

		_, err := conn.ExecContext(ctx, query, args...)

		return err
	})
}

func chunked[T any](items []T, fn func([]T) error) error {
	for start := 0; start < len(items); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(items) {
			end = len(items)
		}

		if err := fn(items[start:end]); err != nil {
			return err
		}
	}

	return nil
}

// rankSingleWord ranks every text by how many times the single
// requested hash occurs in it — spec's single-word algorithm.
func rankSingleWord(ctx context.Context, conn *sql.Conn, limit int) ([]textstore.Ranked, error) {
	query := `
		SELECT p.text_id, COUNT(*) AS matching_words, wc.words_total
		FROM postings_tmp p
		JOIN word_counts wc ON wc.text_id = p.text_id
		GROUP BY p.text_id, wc.words_total
		ORDER BY (COUNT(*)::DOUBLE / wc.words_total) DESC
	` + limitClause(limit)

	return scanRanked(ctx, conn, query)
}

// rankAnyPosition ranks texts that contain every distinct query hash
// somewhere in them, regardless of order or adjacency — spec's
// any-position / unordered-bag algorithm. The HAVING clause is the
// prefilter from twiga_any_position_searcher's texts_with_all_hashes
// CTE: a text only qualifies if it contains all of the distinct
// requested hashes.
func rankAnyPosition(ctx context.Context, conn *sql.Conn, uniqueCount int, limit int) ([]textstore.Ranked, error) {
	query := fmt.Sprintf(`
		WITH matched AS (
			SELECT p.text_id, COUNT(*) AS matching_words
			FROM postings_tmp p
			JOIN query_hashes_tmp q ON q.hash_id = p.hash_id
			GROUP BY p.text_id
			HAVING COUNT(DISTINCT p.hash_id) = %d
		)
		SELECT m.text_id, m.matching_words, wc.words_total
		FROM matched m
		JOIN word_counts wc ON wc.text_id = m.text_id
		ORDER BY (m.matching_words::DOUBLE / wc.words_total) DESC
	`, uniqueCount) + limitClause(limit)

	return scanRanked(ctx, conn, query)
}

// rankExactPhrase implements the offset method (spec's preferred
// exact-phrase algorithm): for every occurrence of a query hash at
// `position`, phrase_start = position - token_index. A text has the
// full phrase starting at phrase_start exactly when every token_index
// from 0..L-1 shows up with that same phrase_start — so grouping by
// (text_id, phrase_start) and requiring COUNT(DISTINCT token_index) =
// L finds exact, contiguous, in-order matches without any string
// concatenation.
func rankExactPhrase(ctx context.Context, conn *sql.Conn, phraseLength int, limit int) ([]textstore.Ranked, error) {
	query := fmt.Sprintf(`
		WITH candidates AS (
			SELECT
				p.text_id,
				p.position - q.token_index AS phrase_start,
				q.token_index
			FROM postings_tmp p
			JOIN query_offsets_tmp q ON q.hash_id = p.hash_id
		),
		phrases AS (
			SELECT text_id, phrase_start, COUNT(DISTINCT token_index) AS tokens_found
			FROM candidates
			GROUP BY text_id, phrase_start
			HAVING COUNT(DISTINCT token_index) = %d
		),
		matched AS (
			SELECT text_id, COUNT(*) * %d AS matching_words
			FROM phrases
			GROUP BY text_id
		)
		SELECT m.text_id, m.matching_words, wc.words_total
		FROM matched m
		JOIN word_counts wc ON wc.text_id = m.text_id
		ORDER BY (m.matching_words::DOUBLE / wc.words_total) DESC
	`, phraseLength, phraseLength) + limitClause(limit)

	return scanRanked(ctx, conn, query)
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}

	return fmt.Sprintf(" LIMIT %d", limit)
}

func scanRanked(ctx context.Context, conn *sql.Conn, query string) ([]textstore.Ranked, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []textstore.Ranked

	for rows.Next() {
		var r textstore.Ranked

		if err := rows.Scan(&r.TextID, &r.MatchingWords, &r.WordsTotal); err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, rows.Err()
}
