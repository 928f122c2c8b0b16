package token

// stopwords-iso.json, the JSON stopword list the original indexer reads
// at startup, ships no license permitting redistribution here, so the
// two language sets this corpus targets (Bulgarian, English) are
// reproduced as a small static union instead of embedding that file.
var defaultStopwordsEN = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"has", "he", "in", "is", "it", "its", "of", "on", "that", "the",
	"to", "was", "were", "will", "with", "this", "but", "or", "not",
	"have", "had", "been", "their", "they", "them", "we", "you", "i",
}

var defaultStopwordsBG = []string{
	"и", "в", "на", "за", "от", "с", "че", "да", "се", "не",
	"той", "тя", "то", "те", "но", "или", "как", "кой", "къде",
	"този", "тази", "това", "тези", "е", "са", "беше", "бяха",
	"ще", "може", "също", "където", "когато", "който", "която",
}

// DefaultStopwords returns the bg+en stopword union used when no
// language-specific set is configured, matching demo_indexer.py's
// `stopwords_bg_set | stopwords_en_set`.
func DefaultStopwords() map[string]struct{} {
	set := make(map[string]struct{}, len(defaultStopwordsEN)+len(defaultStopwordsBG))

	for _, w := range defaultStopwordsEN {
		set[w] = struct{}{}
	}

	for _, w := range defaultStopwordsBG {
		set[w] = struct{}{}
	}

	return set
}
