// Package indexer implements the batch indexer (C6): tokenize and hash
// a batch of texts, then write the resulting postings to the sharded
// index store, one transaction per shard.
package indexer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ddmitov/twiga/internal/corpus/indexstore"
	"github.com/ddmitov/twiga/internal/corpus/textstore"
	"github.com/ddmitov/twiga/internal/hash"
	"github.com/ddmitov/twiga/internal/shard"
	"github.com/ddmitov/twiga/internal/token"
)

// Config controls the indexer's concurrency and sub-batching.
type Config struct {
	Bins int

	// BatchMaximum is the word budget per hashing sub-batch —
	// twiga_core_index.py's hasher_batch_maximum. A batch larger than
	// this is split into several sub-batches, each hashed by its own
	// goroutine. The whole batch is still tokenized up front on the
	// calling goroutine.
	BatchMaximum int

	// Parallelism bounds how many hashing/writing goroutines run at
	// once. Zero means unbounded (one goroutine per sub-batch/shard).
	Parallelism int

	Stopwords map[string]struct{}
}

// Result summarizes one IndexBatch call.
type Result struct {
	TextsWritten int
	WordsTotal   int
	HashesTotal  int
}

// Indexer writes text batches through to both stores.
type Indexer struct {
	texts *textstore.Store
	index *indexstore.Store
	cfg   Config
}

// New builds an Indexer over the given stores.
func New(texts *textstore.Store, index *indexstore.Store, cfg Config) *Indexer {
	if cfg.Stopwords == nil {
		cfg.Stopwords = token.DefaultStopwords()
	}

	return &Indexer{texts: texts, index: index, cfg: cfg}
}

type tokenizedText struct {
	textID int64
	words  []string
}

type hashResult struct {
	occurrences []indexstore.Occurrence
	wordCounts  map[int64]int
}

// IndexBatch writes a batch of documents to the text store, then
// tokenizes, hashes, and writes their postings to the index store.
// Mirrors twiga_index_writer: a CPU-bound hash phase fanned out across
// goroutines, followed by a per-shard transactional write phase.
func (ix *Indexer) IndexBatch(ctx context.Context, docs []textstore.Document) (Result, error) {
	if len(docs) == 0 {
		return Result{}, nil
	}

	texts, err := ix.texts.WriteBatch(ctx, docs)
	if err != nil {
		return Result{}, fmt.Errorf("indexer: write texts: %w", err)
	}

	tokenized := make([]tokenizedText, len(texts))
	for i, t := range texts {
		tokenized[i] = tokenizedText{
			textID: t.TextID,
			words:  token.Tokenize(t.Text, ix.cfg.Stopwords),
		}
	}

	subBatches := splitByWordBudget(tokenized, ix.cfg.BatchMaximum)

	results, err := ix.hashPhase(ctx, subBatches)
	if err != nil {
		return Result{}, fmt.Errorf("indexer: hash phase: %w", err)
	}

	merged, wordCounts := mergeHashResults(results)

	if err := ix.index.WriteWordCounts(ctx, wordCounts); err != nil {
		return Result{}, fmt.Errorf("indexer: word counts: %w", err)
	}

	byBin := partitionByBin(merged, ix.cfg.Bins)

	if err := ix.writePhase(ctx, byBin); err != nil {
		return Result{}, fmt.Errorf("indexer: write phase: %w", err)
	}

	wordsTotal := 0
	for _, n := range wordCounts {
		wordsTotal += n
	}

	return Result{
		TextsWritten: len(texts),
		WordsTotal:   wordsTotal,
		HashesTotal:  len(merged),
	}, nil
}

// splitByWordBudget groups consecutive tokenized texts into sub-batches,
// starting a new one whenever the next text would push the total word
// count past max (0 means one sub-batch). A single text longer than max
// forms a sub-batch of its own and so exceeds the budget. Mirrors
// twiga_list_splitter's word-budget bounded chunking.
func splitByWordBudget(texts []tokenizedText, max int) [][]tokenizedText {
	if max <= 0 {
		return [][]tokenizedText{texts}
	}

	var batches [][]tokenizedText
	var current []tokenizedText
	wordsInCurrent := 0

	for _, t := range texts {
		if wordsInCurrent > 0 && wordsInCurrent+len(t.words) > max {
			batches = append(batches, current)
			current = nil
			wordsInCurrent = 0
		}

		current = append(current, t)
		wordsInCurrent += len(t.words)
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

// hashPhase hashes every sub-batch concurrently. Hashing has no shared
// mutable state beyond the read-only stopword set already applied
// during tokenization, so goroutines are a correct substitute for the
// original's multiprocessing pool.
func (ix *Indexer) hashPhase(ctx context.Context, subBatches [][]tokenizedText) ([]hashResult, error) {
	results := make([]hashResult, len(subBatches))

	g, gctx := errgroup.WithContext(ctx)
	if ix.cfg.Parallelism > 0 {
		g.SetLimit(ix.cfg.Parallelism)
	}

	for i, batch := range subBatches {
		i, batch := i, batch

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			r, err := hashSubBatch(batch)
			if err != nil {
				return err
			}

			results[i] = r

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func hashSubBatch(batch []tokenizedText) (hashResult, error) {
	wordCounts := make(map[int64]int, len(batch))
	var occurrences []indexstore.Occurrence

	for _, t := range batch {
		wordCounts[t.textID] = len(t.words)

		digests, err := hash.DigestAll(t.words)
		if err != nil {
			return hashResult{}, err
		}

		for pos, d := range digests {
			occurrences = append(occurrences, indexstore.Occurrence{
				Hash:     d,
				TextID:   t.textID,
				Position: int32(pos),
			})
		}
	}

	return hashResult{occurrences: occurrences, wordCounts: wordCounts}, nil
}

func mergeHashResults(results []hashResult) ([]indexstore.Occurrence, map[int64]int) {
	wordCounts := make(map[int64]int)
	var occurrences []indexstore.Occurrence

	for _, r := range results {
		occurrences = append(occurrences, r.occurrences...)

		for textID, n := range r.wordCounts {
			wordCounts[textID] = n
		}
	}

	return occurrences, wordCounts
}

func partitionByBin(occurrences []indexstore.Occurrence, bins int) map[int][]indexstore.Occurrence {
	byBin := make(map[int][]indexstore.Occurrence)

	for _, o := range occurrences {
		bin := shard.OfHash(o.Hash, bins)
		byBin[bin] = append(byBin[bin], o)
	}

	return byBin
}

// writePhase writes every shard's occurrences in its own transaction,
// fanned out across goroutines — mirrors twiga_dict_splitter feeding a
// ThreadPool of per-shard writers.
func (ix *Indexer) writePhase(ctx context.Context, byBin map[int][]indexstore.Occurrence) error {
	g, gctx := errgroup.WithContext(ctx)
	if ix.cfg.Parallelism > 0 {
		g.SetLimit(ix.cfg.Parallelism)
	}

	for bin, occurrences := range byBin {
		bin, occurrences := bin, occurrences

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			return ix.index.WriteShard(gctx, bin, occurrences)
		})
	}

	return g.Wait()
}
