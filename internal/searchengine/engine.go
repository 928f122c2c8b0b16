// Package searchengine is the query engine (C7): hash a query, fetch
// its postings, and rank matching texts with one of three SQL-expressed
// algorithms — single-word, any-position, and exact-phrase (offset
// method).
package searchengine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ddmitov/twiga/internal/corpus/indexstore"
	"github.com/ddmitov/twiga/internal/corpus/textstore"
	"github.com/ddmitov/twiga/internal/hash"
	"github.com/ddmitov/twiga/internal/token"
)

// Mode selects which ranking algorithm Rank runs.
type Mode int

const (
	ModeSingleWord Mode = iota
	ModeAnyPosition
	ModeExactPhrase
)

// Engine ranks postings against an Index DB connection.
type Engine struct {
	db *sql.DB
}

// New builds an Engine over the Index DB's connection. Ranking shares
// that connection because query_offsets/postings temp tables and the
// word_counts table must be visible to the same SQL session.
func New(db *sql.DB) *Engine {
	return &Engine{db: db}
}

// HashQuery tokenizes and hashes a raw query string, preserving order
// and duplicates the way the indexer's hashes must be matched
// position-for-position by the exact-phrase algorithm.
func HashQuery(query string) ([]string, error) {
	words := token.TokenizeQuery(query)

	return hash.DigestAll(words)
}

// Rank resolves postings against queryHashes and ranks matching texts.
// If the query is a single token, ranking always falls back to
// single-word mode regardless of the requested mode — matching
// demo_searcher.py's `len(hash_id_list) == 1` auto-dispatch, where
// hash_id_list carries one entry per query token, not per distinct hash.
//
// A query token that never appears in the dictionary at all can never
// be satisfied by any text, so any-position and exact-phrase rank
// against the full token count, known or not — mirroring
// twiga_any_position_searcher/twiga_exact_phrase_searcher's
// `HAVING COUNT(DISTINCT hash_id) = len(hash_id_list)`, computed over
// every requested hash rather than only the ones the index recognizes.
// A naive filter-then-count would instead silently search for the
// known subset of words, matching texts that never contained the
// unknown word at all.
func (e *Engine) Rank(
	ctx context.Context,
	postings *indexstore.Postings,
	queryHashes []string,
	mode Mode,
	limit int,
) ([]textstore.Ranked, error) {
	if postings == nil || postings.Record == nil || postings.Record.NumRows() == 0 {
		return nil, nil
	}

	if len(queryHashes) == 1 {
		mode = ModeSingleWord
	}

	distinctHashIDs := distinctKnownIDs(postings.Known, queryHashes)
	if len(distinctHashIDs) == 0 {
		return nil, nil
	}

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("searchengine: conn: %w", err)
	}
	defer conn.Close()

	if err := loadPostingsTemp(ctx, conn, postings); err != nil {
		return nil, fmt.Errorf("searchengine: load postings: %w", err)
	}

	switch mode {
	case ModeSingleWord:
		return rankSingleWord(ctx, conn, limit)
	case ModeAnyPosition:
		if err := loadDistinctHashesTemp(ctx, conn, distinctHashIDs); err != nil {
			return nil, fmt.Errorf("searchengine: load query hashes: %w", err)
		}

		requiredCount := len(distinctStrings(queryHashes))

		return rankAnyPosition(ctx, conn, requiredCount, limit)
	case ModeExactPhrase:
		offsets := queryOffsets(postings.Known, queryHashes)
		if len(offsets) == 0 {
			return nil, nil
		}

		if err := loadQueryOffsetsTemp(ctx, conn, offsets); err != nil {
			return nil, fmt.Errorf("searchengine: load query offsets: %w", err)
		}

		return rankExactPhrase(ctx, conn, len(queryHashes), limit)
	default:
		return nil, fmt.Errorf("searchengine: unknown mode %d", mode)
	}
}

// distinctKnownIDs maps queryHashes through postings.Known, dropping
// hashes the index never saw and deduplicating the rest.
func distinctKnownIDs(known map[string]int64, queryHashes []string) []int64 {
	seen := make(map[int64]struct{}, len(queryHashes))
	var ids []int64

	for _, h := range queryHashes {
		id, ok := known[h]
		if !ok {
			continue
		}

		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}

type offsetRow struct {
	tokenIndex int
	hashID     int64
}

// queryOffsets builds one row per query token that resolved to a known
// hash, preserving duplicates — a repeated word produces one row per
// occurrence, each with its own token_index, matching
// twiga_core_search.py's index_reader preserving request order. Tokens
// that never appear in the dictionary are simply omitted: their
// token_index can never be satisfied in rankExactPhrase's grouping, so
// the phrase as a whole correctly fails to match anything.
func queryOffsets(known map[string]int64, queryHashes []string) []offsetRow {
	var offsets []offsetRow

	for i, h := range queryHashes {
		id, ok := known[h]
		if !ok {
			continue
		}

		offsets = append(offsets, offsetRow{tokenIndex: i, hashID: id})
	}

	return offsets
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
