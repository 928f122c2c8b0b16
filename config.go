package twiga

import (
	"fmt"
	"os"
	"strconv"
)

// Config configures a new Engine. Numeric fields mirror the
// environment variables the original indexer and optimizer read
// directly — INDEX_BINS, TEXT_BINS, INDEXER_PARTS_PER_BIN,
// INDEXER_BATCH_MAXIMUM.
type Config struct {
	// DataDir holds the twiga_index.db and twiga_texts.db files.
	DataDir string

	// IndexBins is N, the number of index shards.
	IndexBins int

	// TextBins is M, the number of text-store shards.
	TextBins int

	// IndexerPartsPerBin bounds how many goroutines run concurrently
	// during the indexer's hash and write phases. Zero means
	// unbounded.
	IndexerPartsPerBin int

	// IndexerBatchMaximum is the word budget per hashing sub-batch.
	// Zero means no sub-batching.
	IndexerBatchMaximum int
}

// DefaultConfig returns sane defaults for a small local index.
func DefaultConfig() Config {
	return Config{
		DataDir:             "./data",
		IndexBins:           16,
		TextBins:            16,
		IndexerPartsPerBin:  0,
		IndexerBatchMaximum: 200_000,
	}
}

// ConfigFromEnv overlays environment variables onto DefaultConfig,
// matching demo_text_processor.py / twiga_index_optimizer.py's use of
// INDEX_BINS / TEXT_BINS / INDEXER_* as the system's only external
// tuning knobs.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("TWIGA_DATA_DIR"); ok {
		cfg.DataDir = v
	}

	var err error

	if cfg.IndexBins, err = envInt("INDEX_BINS", cfg.IndexBins); err != nil {
		return Config{}, err
	}

	if cfg.TextBins, err = envInt("TEXT_BINS", cfg.TextBins); err != nil {
		return Config{}, err
	}

	if cfg.IndexerPartsPerBin, err = envInt("INDEXER_PARTS_PER_BIN", cfg.IndexerPartsPerBin); err != nil {
		return Config{}, err
	}

	if cfg.IndexerBatchMaximum, err = envInt("INDEXER_BATCH_MAXIMUM", cfg.IndexerBatchMaximum); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate fails fast on a configuration that can't build a usable
// index, per spec's Configuration error in the error taxonomy.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data dir is empty", ErrInvalidConfig)
	}

	if c.IndexBins < 1 {
		return fmt.Errorf("%w: INDEX_BINS must be >= 1, got %d", ErrInvalidConfig, c.IndexBins)
	}

	if c.TextBins < 1 {
		return fmt.Errorf("%w: TEXT_BINS must be >= 1, got %d", ErrInvalidConfig, c.TextBins)
	}

	if c.IndexerPartsPerBin < 0 {
		return fmt.Errorf("%w: INDEXER_PARTS_PER_BIN must be >= 0, got %d", ErrInvalidConfig, c.IndexerPartsPerBin)
	}

	if c.IndexerBatchMaximum < 0 {
		return fmt.Errorf("%w: INDEXER_BATCH_MAXIMUM must be >= 0, got %d", ErrInvalidConfig, c.IndexerBatchMaximum)
	}

	return nil
}

func envInt(name string, def int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, name, v)
	}

	return n, nil
}
