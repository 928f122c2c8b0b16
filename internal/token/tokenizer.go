// Package token splits raw text into normalized, stopword-filtered words.
package token

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks left behind by NFD decomposition,
// turning accented letters into their plain ASCII-ish base form.
var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Tokenize lowercases text, strips diacritics, splits on anything that
// is not a letter or digit, and drops words present in stopwords.
func Tokenize(text string, stopwords map[string]struct{}) []string {
	folded, _, err := transform.String(norm.NFD, text)
	if err != nil {
		folded = text
	}

	folded, _, err = transform.String(stripMarks, folded)
	if err != nil {
		folded = text
	}

	folded = strings.ToLower(folded)

	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	if len(stopwords) == 0 {
		return words
	}

	kept := make([]string, 0, len(words))

	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}

		kept = append(kept, w)
	}

	return kept
}

// TokenizeQuery normalizes a search query the same way Tokenize does,
// but never drops stopwords — a query made entirely of stopwords must
// still resolve to hashes rather than an empty token list.
func TokenizeQuery(text string) []string {
	return Tokenize(text, nil)
}
