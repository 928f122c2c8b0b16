package searchengine

import (
	"context"
	"database/sql"
	"strconv"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/ddmitov/twiga/internal/corpus/indexstore"
	"github.com/ddmitov/twiga/internal/corpus/textstore"
	"github.com/ddmitov/twiga/internal/indexer"
)

func TestDistinctKnownIDsDropsUnknownAndDuplicates(t *testing.T) {
	known := map[string]int64{"aa": 1, "bb": 2}

	ids := distinctKnownIDs(known, []string{"aa", "bb", "aa", "cc"})

	require.Equal(t, []int64{1, 2}, ids)
}

func TestDistinctKnownIDsAllUnknownIsEmpty(t *testing.T) {
	ids := distinctKnownIDs(map[string]int64{}, []string{"zz"})
	require.Empty(t, ids)
}

func TestQueryOffsetsPreservesDuplicateTokens(t *testing.T) {
	known := map[string]int64{"the": 1, "cat": 2}

	offsets := queryOffsets(known, []string{"the", "cat", "the"})
	require.Len(t, offsets, 3)
	require.Equal(t, 0, offsets[0].tokenIndex)
	require.Equal(t, int64(1), offsets[0].hashID)
	require.Equal(t, 2, offsets[2].tokenIndex)
	require.Equal(t, int64(1), offsets[2].hashID)
}

func TestQueryOffsetsAllUnknownIsEmpty(t *testing.T) {
	offsets := queryOffsets(map[string]int64{}, []string{"zz"})
	require.Empty(t, offsets)
}

func TestDistinctStringsDedupsPreservingOrder(t *testing.T) {
	require.Equal(t, []string{"aa", "bb"}, distinctStrings([]string{"aa", "bb", "aa"}))
}

func TestLimitClause(t *testing.T) {
	require.Equal(t, "", limitClause(0))
	require.Equal(t, " LIMIT 10", limitClause(10))
}

func TestHashQueryPreservesOrderAndDuplicates(t *testing.T) {
	digests, err := HashQuery("the cat the dog")
	require.NoError(t, err)
	require.Len(t, digests, 4)
	require.Equal(t, digests[0], digests[2])
}

// testCorpus wires a full text+index pair of in-memory DuckDB databases
// through the real indexer, so Rank exercises the same SQL a live
// Engine would run — the end-to-end scenarios spec.md §8 describes.
type testCorpus struct {
	index   *indexstore.Store
	engine  *Engine
	byTitle map[string]int64
}

func buildCorpus(t *testing.T, docs map[string]string) *testCorpus {
	t.Helper()

	ctx := context.Background()

	textDB, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { textDB.Close() })

	indexDB, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { indexDB.Close() })

	texts, err := textstore.New(textDB, 2)
	require.NoError(t, err)
	require.NoError(t, texts.Ensure(ctx))

	index, err := indexstore.New(indexDB, 2)
	require.NoError(t, err)
	require.NoError(t, index.Ensure(ctx))

	ix := indexer.New(texts, index, indexer.Config{Bins: 2})

	titles := make([]string, 0, len(docs))
	for title := range docs {
		titles = append(titles, title)
	}

	batch := make([]textstore.Document, len(titles))
	for i, title := range titles {
		batch[i] = textstore.Document{Title: title, Text: docs[title]}
	}

	_, err = ix.IndexBatch(ctx, batch)
	require.NoError(t, err)

	byTitleID := titleToTextID(t, ctx, textDB)

	return &testCorpus{index: index, engine: New(indexDB), byTitle: byTitleID}
}

// titleToTextID reads every bin's title -> text_id mapping straight out
// of the Text DB, since IndexBatch assigns ids internally and doesn't
// hand them back keyed by title.
func titleToTextID(t *testing.T, ctx context.Context, textDB *sql.DB) map[string]int64 {
	t.Helper()

	out := make(map[string]int64)

	for bin := 1; bin <= 2; bin++ {
		rows, err := textDB.QueryContext(ctx, "SELECT text_id, title FROM texts_bin_"+strconv.Itoa(bin))
		require.NoError(t, err)

		for rows.Next() {
			var id int64
			var title string
			require.NoError(t, rows.Scan(&id, &title))
			out[title] = id
		}

		require.NoError(t, rows.Err())
		rows.Close()
	}

	return out
}

func (c *testCorpus) rank(t *testing.T, ctx context.Context, query string, mode Mode) []textstore.Ranked {
	t.Helper()

	hashes, err := HashQuery(query)
	require.NoError(t, err)

	postings, err := c.index.ReadIndex(ctx, hashes)
	require.NoError(t, err)
	if postings != nil {
		defer postings.Release()
	}

	ranked, err := c.engine.Rank(ctx, postings, hashes, mode, 0)
	require.NoError(t, err)

	return ranked
}

func findRanked(ranked []textstore.Ranked, textID int64) (textstore.Ranked, bool) {
	for _, r := range ranked {
		if r.TextID == textID {
			return r, true
		}
	}

	return textstore.Ranked{}, false
}

// Scenario 1 (spec.md §8): single-word query matches both documents
// that contain it.
func TestScenario1SingleWordMatchesBothDocuments(t *testing.T) {
	ctx := context.Background()

	corpus := buildCorpus(t, map[string]string{
		"d1": "The quick brown fox",
		"d2": "A slow brown dog",
	})

	ranked := corpus.rank(t, ctx, "brown", ModeSingleWord)
	require.Len(t, ranked, 2)

	r1, ok := findRanked(ranked, corpus.byTitle["d1"])
	require.True(t, ok)
	require.Equal(t, 1, r1.MatchingWords)
	require.Equal(t, 3, r1.WordsTotal)
	require.InDelta(t, 0.33333, float64(r1.MatchingWords)/float64(r1.WordsTotal), 0.001)

	r2, ok := findRanked(ranked, corpus.byTitle["d2"])
	require.True(t, ok)
	require.Equal(t, 1, r2.MatchingWords)
	require.Equal(t, 3, r2.WordsTotal)
}

// Scenario 2 (spec.md §8): exact-phrase query only matches the
// document containing the phrase in that exact order.
func TestScenario2ExactPhraseMatchesOnlyExactOrder(t *testing.T) {
	ctx := context.Background()

	corpus := buildCorpus(t, map[string]string{
		"d3": "the quick brown fox jumps over",
		"d4": "the brown fox is quick",
	})

	ranked := corpus.rank(t, ctx, "quick brown fox", ModeExactPhrase)
	require.Len(t, ranked, 1)

	r, ok := findRanked(ranked, corpus.byTitle["d3"])
	require.True(t, ok)
	require.Equal(t, 3, r.MatchingWords)
	require.Equal(t, 5, r.WordsTotal)
	require.InDelta(t, 0.6, float64(r.MatchingWords)/float64(r.WordsTotal), 0.0001)

	_, matched := findRanked(ranked, corpus.byTitle["d4"])
	require.False(t, matched)
}

// Scenario 3 (spec.md §8): any-position query matches documents
// containing every word regardless of order.
func TestScenario3AnyPositionMatchesRegardlessOfOrder(t *testing.T) {
	ctx := context.Background()

	corpus := buildCorpus(t, map[string]string{
		"d3": "the quick brown fox jumps over",
		"d4": "the brown fox is quick",
	})

	ranked := corpus.rank(t, ctx, "quick fox brown", ModeAnyPosition)
	require.Len(t, ranked, 2)

	_, ok3 := findRanked(ranked, corpus.byTitle["d3"])
	require.True(t, ok3)

	_, ok4 := findRanked(ranked, corpus.byTitle["d4"])
	require.True(t, ok4)
}

// Scenario 4 (spec.md §8): a repeated-term phrase query can match the
// same document at more than one starting offset — no pure-Go test can
// reach this since it depends on the offset-method SQL grouping by
// (text_id, phrase_start) inside a real engine.
func TestScenario4RepeatedTermPhraseCountsEveryOccurrence(t *testing.T) {
	ctx := context.Background()

	corpus := buildCorpus(t, map[string]string{
		"d5": "ab ab ab",
	})

	ranked := corpus.rank(t, ctx, "ab ab", ModeExactPhrase)
	require.Len(t, ranked, 1)

	r, ok := findRanked(ranked, corpus.byTitle["d5"])
	require.True(t, ok)
	require.Equal(t, 4, r.MatchingWords)
	require.Equal(t, 3, r.WordsTotal)
	require.InDelta(t, 1.33333, float64(r.MatchingWords)/float64(r.WordsTotal), 0.001)
}

// Scenario 5 (spec.md §8): Unicode text round-trips through
// normalization, hashing, and SQL matching intact.
func TestScenario5UnicodeQueryMatches(t *testing.T) {
	ctx := context.Background()

	corpus := buildCorpus(t, map[string]string{
		"d6": "София е столица",
	})

	ranked := corpus.rank(t, ctx, "софия", ModeSingleWord)
	require.Len(t, ranked, 1)

	r, ok := findRanked(ranked, corpus.byTitle["d6"])
	require.True(t, ok)
	require.Equal(t, 1, r.MatchingWords)
}

// Scenario 6 (spec.md §8): a query that resolves to no known hash
// yields no results, not an error.
func TestScenario6NoMatchIsNilNotError(t *testing.T) {
	ctx := context.Background()

	corpus := buildCorpus(t, map[string]string{
		"d1": "The quick brown fox",
	})

	ranked := corpus.rank(t, ctx, "xyzzy", ModeSingleWord)
	require.Empty(t, ranked)
}

// Regression test for the pooled-connection temp-table reuse bug: two
// sequential Rank calls against the same *sql.DB must both succeed,
// which only holds if the temp tables are created with CREATE OR
// REPLACE rather than a bare CREATE.
func TestRankReusesPooledConnectionAcrossCalls(t *testing.T) {
	ctx := context.Background()

	corpus := buildCorpus(t, map[string]string{
		"d1": "The quick brown fox",
		"d2": "A slow brown dog",
	})

	for i := 0; i < 3; i++ {
		ranked := corpus.rank(t, ctx, "brown", ModeSingleWord)
		require.Len(t, ranked, 2)
	}
}
