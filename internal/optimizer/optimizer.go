// Package optimizer is the offline index maintenance job (C8): it
// physically reorders each shard's dictionary table by hash and its
// postings table by hash_id so range scans and joins stay sequential,
// then checkpoints the database file.
package optimizer

import (
	"context"
	"database/sql"
	"fmt"
)

// Report summarizes one optimization pass.
type Report struct {
	BinsOptimized int
	Failures      map[string]error
}

// Optimizer reorders every bin table in an Index DB.
type Optimizer struct {
	db   *sql.DB
	bins int
}

// New builds an Optimizer over an already-open Index DB connection.
func New(db *sql.DB, bins int) *Optimizer {
	return &Optimizer{db: db, bins: bins}
}

// Run reorders every dict_bin_N table by hash ascending and every
// postings_bin_N table by hash_id ascending, matching
// twiga_index_optimizer.py's reorder_bin_table,
// then checkpoints the database. A single bin's failure is recorded
// and does not stop the remaining bins — mirrors the original's
// per-table try/except continue loop (spec's §7 "optimizer errors").
func (o *Optimizer) Run(ctx context.Context) (Report, error) {
	report := Report{Failures: make(map[string]error)}

	for bin := 1; bin <= o.bins; bin++ {
		dictTable := fmt.Sprintf("dict_bin_%d", bin)
		postingsTable := fmt.Sprintf("postings_bin_%d", bin)

		if err := reorderTable(ctx, o.db, dictTable, "hash"); err != nil {
			report.Failures[dictTable] = err
			continue
		}

		if err := reorderTable(ctx, o.db, postingsTable, "hash_id"); err != nil {
			report.Failures[postingsTable] = err
			continue
		}

		report.BinsOptimized++
	}

	if _, err := o.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return report, fmt.Errorf("optimizer: checkpoint: %w", err)
	}

	return report, nil
}

// reorderTable rebuilds table ordered by orderColumn ascending, inside
// one transaction, via a temporary table copy — the exact shape of
// twiga_index_optimizer.py's reorder_bin_table.
func reorderTable(ctx context.Context, db *sql.DB, table, orderColumn string) error {
	tmp := table + "_reordered"

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// CREATE OR REPLACE: BeginTx may hand back a *sql.Conn the pool
	// already used for an earlier Run, and DuckDB keeps TEMPORARY
	// tables alive for the life of the physical connection rather than
	// the transaction, so a bare CREATE would fail the second time Run
	// lands on that connection.
	ddl := fmt.Sprintf(
		"CREATE OR REPLACE TEMPORARY TABLE %s AS SELECT * FROM %s ORDER BY %s ASC",
		tmp, table, orderColumn,
	)

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("copy ordered: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", table, tmp)); err != nil {
		return fmt.Errorf("reinsert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s", tmp)); err != nil {
		return fmt.Errorf("drop temp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}
