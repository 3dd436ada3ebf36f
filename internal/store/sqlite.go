package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/takp-dkp/lootledger/internal/model"
)

// RunRecord is one archived engine run.
type RunRecord struct {
	ID         string
	Mode       string
	LedgerPath string
	Stats      model.RunStats
	CreatedAt  time.Time
}

// HistoryStore keeps a local log of engine runs in SQLite.
type HistoryStore struct {
	db *sql.DB
}

// NewHistory opens the run-history database at path and configures WAL mode.
func NewHistory(path string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &HistoryStore{db: db}, nil
}

const historyMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	ledger_path TEXT NOT NULL,
	rows_total  INTEGER NOT NULL,
	preserved   INTEGER NOT NULL,
	decided     INTEGER NOT NULL,
	unassigned  INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Migrate creates the schema.
func (s *HistoryStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, historyMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// RecordRun archives one run's statistics.
func (s *HistoryStore) RecordRun(ctx context.Context, mode model.RunMode, ledgerPath string, stats model.RunStats) (*RunRecord, error) {
	rec := &RunRecord{
		ID:         uuid.New().String(),
		Mode:       string(mode),
		LedgerPath: ledgerPath,
		Stats:      stats,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, ledger_path, rows_total, preserved, decided, unassigned, skipped, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Mode, rec.LedgerPath,
		stats.RowsTotal, stats.Preserved, stats.Decided, stats.Unassigned, stats.Skipped,
		rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *HistoryStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, ledger_path, rows_total, preserved, decided, unassigned, skipped, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.Mode, &rec.LedgerPath,
			&rec.Stats.RowsTotal, &rec.Stats.Preserved, &rec.Stats.Decided,
			&rec.Stats.Unassigned, &rec.Stats.Skipped, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate runs")
	}
	return out, nil
}
