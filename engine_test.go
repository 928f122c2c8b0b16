package twiga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRejectsInvalidConfig(t *testing.T) {
	_, err := Open(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestEngineEndToEnd(t *testing.T) {
	ctx := context.Background()

	cfg := Config{DataDir: t.TempDir(), IndexBins: 2, TextBins: 2}

	engine, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	require.NoError(t, engine.CreateIndex(ctx))

	result, err := engine.WriteBatch(ctx, []Document{
		{Title: "d1", Text: "The quick brown fox"},
		{Title: "d2", Text: "A slow brown dog"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.TextsWritten)

	enriched, err := engine.Search(ctx, "brown", ModeSingleWord, 0)
	require.NoError(t, err)
	require.Len(t, enriched, 2)

	for _, e := range enriched {
		require.Equal(t, 1, e.MatchingWords)
		require.Equal(t, 3, e.WordsTotal)
	}

	none, err := engine.Search(ctx, "xyzzy", ModeSingleWord, 0)
	require.NoError(t, err)
	require.Nil(t, none)

	report, err := engine.Optimize(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.BinsOptimized)
	require.Empty(t, report.Failures)
}
