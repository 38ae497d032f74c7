package core

// history.go persists import run outcomes to Postgres so operators can
// review past imports and download failed rows for correction.

import (
	"context"
	"fmt"
	"time"
)

// RunRecord is a recorded import run.
type RunRecord struct {
	ImportID  string        `json:"importId"`
	Kind      string        `json:"kind"`
	FileName  string        `json:"fileName"`
	TotalRows int           `json:"totalRows"`
	Imported  int           `json:"imported"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"durationMs"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// HistoryStore records import runs and their row errors.
type HistoryStore struct {
	db DBTX
}

// NewHistoryStore creates a store over the given connection pool.
func NewHistoryStore(db DBTX) *HistoryStore {
	return &HistoryStore{db: db}
}

// RecordRun saves a completed run and its row errors.
func (s *HistoryStore) RecordRun(ctx context.Context, summary *ImportSummary) error {
	const insertRun = `
		INSERT INTO import_runs (id, kind, file_name, total_rows, imported, failed, duration_ms, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`

	_, err := s.db.Exec(ctx, insertRun,
		summary.ImportID,
		summary.Kind,
		summary.FileName,
		summary.TotalRows,
		summary.Imported,
		summary.Failed,
		summary.Duration.Milliseconds(),
		summary.Error,
	)
	if err != nil {
		return fmt.Errorf("insert import run: %w", err)
	}

	const insertRowError = `
		INSERT INTO import_row_errors (import_id, row_num, message, row_data)
		VALUES ($1, $2, $3, $4)`

	for _, re := range summary.RowErrors {
		if _, err := s.db.Exec(ctx, insertRowError, summary.ImportID, re.Row, re.Message, re.Data); err != nil {
			return fmt.Errorf("insert row error: %w", err)
		}
	}

	return nil
}

// ListRuns returns runs for a kind, newest first, capped at 50.
func (s *HistoryStore) ListRuns(ctx context.Context, kind string) ([]RunRecord, error) {
	const query = `
		SELECT id, kind, file_name, total_rows, imported, failed, duration_ms, error, created_at
		FROM import_runs
		WHERE kind = $1
		ORDER BY created_at DESC
		LIMIT 50`

	rows, err := s.db.Query(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var durationMS int64
		if err := rows.Scan(&r.ImportID, &r.Kind, &r.FileName, &r.TotalRows, &r.Imported, &r.Failed, &durationMS, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import runs: %w", err)
	}

	return records, nil
}

// FailedRows returns the row errors recorded for an import, in row order.
func (s *HistoryStore) FailedRows(ctx context.Context, importID string) ([]RowError, error) {
	const query = `
		SELECT row_num, message, row_data
		FROM import_row_errors
		WHERE import_id = $1
		ORDER BY row_num`

	rows, err := s.db.Query(ctx, query, importID)
	if err != nil {
		return nil, fmt.Errorf("query row errors: %w", err)
	}
	defer rows.Close()

	var errs []RowError
	for rows.Next() {
		var re RowError
		if err := rows.Scan(&re.Row, &re.Message, &re.Data); err != nil {
			return nil, fmt.Errorf("scan row error: %w", err)
		}
		errs = append(errs, re)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate row errors: %w", err)
	}

	return errs, nil
}
