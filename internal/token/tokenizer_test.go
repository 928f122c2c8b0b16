package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeStripsAccentsAndLowercases(t *testing.T) {
	words := Tokenize("Café NAÏVE résumé", nil)

	require.Equal(t, []string{"cafe", "naive", "resume"}, words)
}

func TestTokenizeDropsStopwords(t *testing.T) {
	stop := DefaultStopwords()

	words := Tokenize("The quick fox and the lazy dog", stop)

	require.Equal(t, []string{"quick", "fox", "lazy", "dog"}, words)
}

func TestTokenizeSplitsOnPunctuation(t *testing.T) {
	words := Tokenize("hello, world! it's 2024.", nil)

	require.Equal(t, []string{"hello", "world", "it", "s", "2024"}, words)
}

func TestTokenizeQueryKeepsStopwords(t *testing.T) {
	words := TokenizeQuery("the cat sat on the mat")

	require.Equal(t, []string{"the", "cat", "sat", "on", "the", "mat"}, words)
}

func TestDefaultStopwordsUnionsBothLanguages(t *testing.T) {
	stop := DefaultStopwords()

	require.Contains(t, stop, "the")
	require.Contains(t, stop, "и")
}
