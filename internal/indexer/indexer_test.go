package indexer

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/ddmitov/twiga/internal/corpus/indexstore"
	"github.com/ddmitov/twiga/internal/corpus/textstore"
	"github.com/ddmitov/twiga/internal/hash"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

func words(n int) []string {
	w := make([]string, n)
	for i := range w {
		w[i] = "w"
	}
	return w
}

func TestSplitByWordBudgetRespectsMax(t *testing.T) {
	texts := []tokenizedText{
		{textID: 1, words: words(5)},
		{textID: 2, words: words(5)},
		{textID: 3, words: words(5)},
	}

	batches := splitByWordBudget(texts, 7)

	require.Len(t, batches, 3)
	require.Len(t, batches[0], 1)
}

func TestSplitByWordBudgetZeroMeansOneBatch(t *testing.T) {
	texts := []tokenizedText{{textID: 1, words: words(3)}, {textID: 2, words: words(3)}}

	batches := splitByWordBudget(texts, 0)

	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
}

func TestHashSubBatchProducesOccurrencesInOrder(t *testing.T) {
	batch := []tokenizedText{{textID: 42, words: []string{"cat", "dog", "cat"}}}

	r, err := hashSubBatch(batch)
	require.NoError(t, err)
	require.Equal(t, 3, r.wordCounts[42])
	require.Len(t, r.occurrences, 3)
	require.Equal(t, r.occurrences[0].Hash, r.occurrences[2].Hash)
	require.Equal(t, int32(0), r.occurrences[0].Position)
	require.Equal(t, int32(2), r.occurrences[2].Position)
}

func TestMergeHashResultsCombinesWordCountsAndOccurrences(t *testing.T) {
	results := []hashResult{
		{
			occurrences: []indexstore.Occurrence{{Hash: "a", TextID: 1, Position: 0}},
			wordCounts:  map[int64]int{1: 1},
		},
		{
			occurrences: []indexstore.Occurrence{{Hash: "b", TextID: 2, Position: 0}},
			wordCounts:  map[int64]int{2: 1},
		},
	}

	occ, counts := mergeHashResults(results)

	require.Len(t, occ, 2)
	require.Equal(t, map[int64]int{1: 1, 2: 1}, counts)
}

func TestPartitionByBinGroupsByShard(t *testing.T) {
	occ := []indexstore.Occurrence{
		{Hash: "00", TextID: 1, Position: 0},
		{Hash: "ff", TextID: 2, Position: 0},
	}

	byBin := partitionByBin(occ, 4)

	total := 0
	for _, v := range byBin {
		total += len(v)
	}

	require.Equal(t, 2, total)
}

func TestIndexBatchWritesTextsAndPostings(t *testing.T) {
	textDB := openTestDB(t)
	indexDB := openTestDB(t)
	ctx := context.Background()

	texts, err := textstore.New(textDB, 2)
	require.NoError(t, err)
	require.NoError(t, texts.Ensure(ctx))

	index, err := indexstore.New(indexDB, 2)
	require.NoError(t, err)
	require.NoError(t, index.Ensure(ctx))

	ix := New(texts, index, Config{Bins: 2, Stopwords: map[string]struct{}{}})

	docs := []textstore.Document{
		{Title: "d1", Date: time.Now().UTC(), Text: "The quick brown fox"},
		{Title: "d2", Date: time.Now().UTC(), Text: "A slow brown dog"},
	}

	result, err := ix.IndexBatch(ctx, docs)
	require.NoError(t, err)
	require.Equal(t, 2, result.TextsWritten)
	require.Equal(t, 8, result.WordsTotal)
	require.Equal(t, 8, result.HashesTotal) // total occurrences across both texts, "brown" counted twice

	brownHash, err := hash.Digest("brown")
	require.NoError(t, err)

	postings, err := index.ReadIndex(ctx, []string{brownHash})
	require.NoError(t, err)
	require.NotNil(t, postings)
	defer postings.Release()

	require.Len(t, postings.Known, 1)

	textIDs := make(map[int64]struct{})
	postings.Rows(func(_ int64, textID int64, _ int32) {
		textIDs[textID] = struct{}{}
	})

	require.Len(t, textIDs, 2) // "brown" occurs in both documents
}

func TestIndexBatchEmptyIsNoop(t *testing.T) {
	textDB := openTestDB(t)
	indexDB := openTestDB(t)
	ctx := context.Background()

	texts, err := textstore.New(textDB, 1)
	require.NoError(t, err)
	require.NoError(t, texts.Ensure(ctx))

	index, err := indexstore.New(indexDB, 1)
	require.NoError(t, err)
	require.NoError(t, index.Ensure(ctx))

	ix := New(texts, index, Config{Bins: 1})

	result, err := ix.IndexBatch(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, result.TextsWritten)
}
