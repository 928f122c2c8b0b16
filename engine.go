// Package twiga is a lexical search engine for multilingual text
// corpora that stores its inverted index and document payloads as
// ordinary tables in an embedded DuckDB database. Engine is the single
// public entry point; every concern below it (tokenizing, hashing,
// sharding, writing, ranking, optimizing) lives under internal/.
package twiga

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/ddmitov/twiga/internal/corpus/indexstore"
	"github.com/ddmitov/twiga/internal/corpus/textstore"
	"github.com/ddmitov/twiga/internal/indexer"
	"github.com/ddmitov/twiga/internal/optimizer"
	"github.com/ddmitov/twiga/internal/searchengine"
)

// Document is one text payload to index — a stand-in for whatever
// upstream ingester (out of scope here) produces the corpus.
type Document = textstore.Document

// Ranked is one ranking result before it is joined back to its text.
type Ranked = textstore.Ranked

// Enriched is a ranked result joined back to its stored text, ordered
// by term frequency descending.
type Enriched = textstore.Enriched

// Mode selects a ranking algorithm for Rank.
type Mode = searchengine.Mode

const (
	ModeSingleWord  = searchengine.ModeSingleWord
	ModeAnyPosition = searchengine.ModeAnyPosition
	ModeExactPhrase = searchengine.ModeExactPhrase
)

// BatchResult summarizes one WriteBatch call.
type BatchResult = indexer.Result

// OptimizeReport summarizes one Optimize call.
type OptimizeReport = optimizer.Report

// Engine is the facade over the text store, index store, batch
// indexer, query engine, and optimizer — the one type most callers
// need, mirroring the teacher's pattern of a single aggregating Store
// over many typed sub-stores.
type Engine struct {
	cfg Config

	textDB  *sql.DB
	indexDB *sql.DB

	texts     *textstore.Store
	index     *indexstore.Store
	indexer   *indexer.Indexer
	queries   *searchengine.Engine
	optimizer *optimizer.Optimizer
}

// Open validates cfg, opens (creating if necessary) the text and index
// DuckDB files under cfg.DataDir, and wires up every component.
// CreateIndex must still be called once before writing or reading.
func Open(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("twiga: data dir: %w", err)
	}

	textDB, err := sql.Open("duckdb", filepath.Join(cfg.DataDir, "twiga_texts.db"))
	if err != nil {
		return nil, fmt.Errorf("twiga: open text db: %w", err)
	}

	indexDB, err := sql.Open("duckdb", filepath.Join(cfg.DataDir, "twiga_index.db"))
	if err != nil {
		textDB.Close()
		return nil, fmt.Errorf("twiga: open index db: %w", err)
	}

	texts, err := textstore.New(textDB, cfg.TextBins)
	if err != nil {
		textDB.Close()
		indexDB.Close()
		return nil, fmt.Errorf("twiga: text store: %w", err)
	}

	index, err := indexstore.New(indexDB, cfg.IndexBins)
	if err != nil {
		textDB.Close()
		indexDB.Close()
		return nil, fmt.Errorf("twiga: index store: %w", err)
	}

	ix := indexer.New(texts, index, indexer.Config{
		Bins:         cfg.IndexBins,
		BatchMaximum: cfg.IndexerBatchMaximum,
		Parallelism:  cfg.IndexerPartsPerBin,
	})

	return &Engine{
		cfg:       cfg,
		textDB:    textDB,
		indexDB:   indexDB,
		texts:     texts,
		index:     index,
		indexer:   ix,
		queries:   searchengine.New(indexDB),
		optimizer: optimizer.New(indexDB, cfg.IndexBins),
	}, nil
}

// Close releases both database connections.
func (e *Engine) Close() error {
	textErr := e.textDB.Close()
	indexErr := e.indexDB.Close()

	if textErr != nil {
		return textErr
	}

	return indexErr
}

// CreateIndex creates the schema for both stores, idempotently.
func (e *Engine) CreateIndex(ctx context.Context) error {
	if err := e.texts.Ensure(ctx); err != nil {
		return err
	}

	return e.index.Ensure(ctx)
}

// WriteBatch tokenizes, hashes, and writes a batch of documents to
// both stores.
func (e *Engine) WriteBatch(ctx context.Context, docs []Document) (BatchResult, error) {
	return e.indexer.IndexBatch(ctx, docs)
}

// HashQuery tokenizes and hashes a raw query string.
func (e *Engine) HashQuery(query string) ([]string, error) {
	return searchengine.HashQuery(query)
}

// ReadIndex fetches postings for a set of hashes.
func (e *Engine) ReadIndex(ctx context.Context, hashes []string) (*indexstore.Postings, error) {
	return e.index.ReadIndex(ctx, hashes)
}

// Search runs a full query end to end: hash, fetch postings, rank, and
// join the ranking back against stored text — the library-level
// equivalent of demo_searcher.py's text_searcher.
func (e *Engine) Search(ctx context.Context, query string, mode Mode, limit int) ([]Enriched, error) {
	hashes, err := e.HashQuery(query)
	if err != nil {
		return nil, fmt.Errorf("twiga: hash query: %w", err)
	}

	if len(hashes) == 0 {
		return nil, ErrQueryEmpty
	}

	postings, err := e.ReadIndex(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("twiga: read index: %w", err)
	}
	defer postings.Release()

	ranked, err := e.queries.Rank(ctx, postings, hashes, mode, limit)
	if err != nil {
		return nil, fmt.Errorf("twiga: rank: %w", err)
	}

	if len(ranked) == 0 {
		return nil, nil
	}

	return e.texts.ReadTexts(ctx, ranked)
}

// Optimize runs the offline index maintenance job.
func (e *Engine) Optimize(ctx context.Context) (OptimizeReport, error) {
	return e.optimizer.Run(ctx)
}
