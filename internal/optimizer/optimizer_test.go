package optimizer

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/ddmitov/twiga/internal/corpus/indexstore"
)

func TestNewStoresBinsAndDB(t *testing.T) {
	o := New(nil, 8)
	require.Equal(t, 8, o.bins)
	require.Nil(t, o.db)
}

func TestReportZeroValue(t *testing.T) {
	var r Report
	require.Zero(t, r.BinsOptimized)
	require.Nil(t, r.Failures)
}

func TestRunReordersTablesAndPreservesRows(t *testing.T) {
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()

	index, err := indexstore.New(db, 2)
	require.NoError(t, err)
	require.NoError(t, index.Ensure(ctx))

	occurrences := []indexstore.Occurrence{
		{Hash: "cc", TextID: 1, Position: 0},
		{Hash: "aa", TextID: 1, Position: 1},
		{Hash: "bb", TextID: 2, Position: 0},
	}

	require.NoError(t, index.WriteShard(ctx, 1, occurrences))

	o := New(db, 2)
	report, err := o.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.BinsOptimized)
	require.Empty(t, report.Failures)

	rows, err := db.QueryContext(ctx, "SELECT hash FROM dict_bin_1 ORDER BY hash_id")
	require.NoError(t, err)
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		require.NoError(t, rows.Scan(&h))
		hashes = append(hashes, h)
	}
	require.NoError(t, rows.Err())
	require.Len(t, hashes, 3)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM postings_bin_1").Scan(&count))
	require.Equal(t, 3, count)
}

func TestRunTwiceOnSameDBSucceeds(t *testing.T) {
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()

	index, err := indexstore.New(db, 1)
	require.NoError(t, err)
	require.NoError(t, index.Ensure(ctx))

	require.NoError(t, index.WriteShard(ctx, 1, []indexstore.Occurrence{
		{Hash: "aa", TextID: 1, Position: 0},
	}))

	o := New(db, 1)

	_, err = o.Run(ctx)
	require.NoError(t, err)

	_, err = o.Run(ctx)
	require.NoError(t, err)
}
