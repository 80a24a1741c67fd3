package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "twcpi/internal/errors"
	"twcpi/pkg/contracts/domain"
)

// Run statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("run not found")

// RunRecord summarizes one pipeline run
type RunRecord struct {
	RunID        string
	StartedAt    time.Time
	Duration     time.Duration
	Status       string
	Error        string
	InputPath    string
	OutputPath   string
	BaseDate     time.Time
	Categories   []string
	Records      int
	SkippedRows  int
	InvalidCells int
	Observations int
	RebasedRows  int
	MissingIndex int
}

// HistoryRepository keeps a ledger of runs and the tables they drew
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository opens (creating if needed) the SQLite database at
// dbPath and migrates it
func NewHistoryRepository(dbPath string) (*HistoryRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, apperrors.NewStorageError("create db directory", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.NewStorageError("open sqlite database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("ping database", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("migrate history database", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	return &HistoryRepository{db: db}, nil
}

// Close releases the database
func (r *HistoryRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveRun stores a run and its rebased table in one transaction
func (r *HistoryRepository) SaveRun(ctx context.Context, rec RunRecord, rows []domain.RebasedObservation) (err error) {
	categories, err := json.Marshal(rec.Categories)
	if err != nil {
		return apperrors.NewStorageError("encode categories", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("begin transaction", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		run_id, started_at, duration_ms, status, error, input_path, output_path,
		base_date, categories, records, skipped_rows, invalid_cells,
		observations, rebased_rows, missing_index
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.Duration.Milliseconds(),
		rec.Status,
		rec.Error,
		rec.InputPath,
		rec.OutputPath,
		rec.BaseDate.Format("2006-01-02"),
		string(categories),
		rec.Records,
		rec.SkippedRows,
		rec.InvalidCells,
		rec.Observations,
		rec.RebasedRows,
		rec.MissingIndex,
	)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("insert run %s", rec.RunID), err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rebased_observations
		(run_id, seq, date, category, value, base_value, index_100)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.NewStorageError("prepare observation insert", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err = stmt.ExecContext(ctx, rec.RunID, i,
			row.Date.Format("2006-01-02"),
			row.Category,
			nullable(row.Value),
			nullable(row.BaseValue),
			nullable(row.Index100),
		); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("insert observation %d", i), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return apperrors.NewStorageError("commit run", err)
	}

	slog.DebugContext(ctx, "Run saved to history",
		"run_id", rec.RunID,
		"status", rec.Status,
		"rows", len(rows))
	return nil
}

const runColumns = `run_id, started_at, duration_ms, status, error, input_path, output_path,
	base_date, categories, records, skipped_rows, invalid_cells,
	observations, rebased_rows, missing_index`

// GetRun returns one run, or ErrRunNotFound
func (r *HistoryRepository) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get run", err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs first
func (r *HistoryRepository) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.NewStorageError("list runs", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("scan run", err)
		}
		runs = append(runs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list runs", err)
	}
	return runs, nil
}

// RunObservations returns the table a run drew, in drawing order
func (r *HistoryRepository) RunObservations(ctx context.Context, runID string) ([]domain.RebasedObservation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, category, value, base_value, index_100
		FROM rebased_observations WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, apperrors.NewStorageError("query observations", err)
	}
	defer rows.Close()

	var out []domain.RebasedObservation
	for rows.Next() {
		var (
			date, category          string
			value, base, index100 sql.NullFloat64
		)
		if err := rows.Scan(&date, &category, &value, &base, &index100); err != nil {
			return nil, apperrors.NewStorageError("scan observation", err)
		}
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, apperrors.NewStorageError("parse observation date", err)
		}
		out = append(out, domain.RebasedObservation{
			LongObservation: domain.LongObservation{Date: d, Category: category, Value: fromNullable(value)},
			BaseValue:       fromNullable(base),
			Index100:        fromNullable(index100),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("query observations", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var (
		rec                 RunRecord
		startedAt, baseDate string
		categories          string
		durationMS          int64
	)
	err := s.Scan(&rec.RunID, &startedAt, &durationMS, &rec.Status, &rec.Error,
		&rec.InputPath, &rec.OutputPath, &baseDate, &categories,
		&rec.Records, &rec.SkippedRows, &rec.InvalidCells,
		&rec.Observations, &rec.RebasedRows, &rec.MissingIndex)
	if err != nil {
		return nil, err
	}

	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, err
	}
	if rec.BaseDate, err = time.Parse("2006-01-02", baseDate); err != nil {
		return nil, err
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	if err = json.Unmarshal([]byte(categories), &rec.Categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return &rec, nil
}

func nullable(v float64) sql.NullFloat64 {
	if domain.IsMissing(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return domain.Missing()
	}
	return v.Float64
}
