package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitewatch/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "sitewatch.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores the results of past detection runs.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		outcome TEXT NOT NULL,
		source_count INTEGER NOT NULL,
		changed_count INTEGER NOT NULL,
		failed_count INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		source TEXT NOT NULL,
		previous_fp TEXT NOT NULL,
		current_fp TEXT NOT NULL,
		diff_excerpt TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_changes_source ON changes(source);

	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		source TEXT NOT NULL,
		reason TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_failures_source ON failures(source);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// RunSummary is the metadata of one stored run, without the full report.
type RunSummary struct {
	// ID is the run's database identifier.
	ID int64

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run finished.
	FinishedAt time.Time

	// Outcome is the run classification.
	Outcome model.Outcome

	// SourceCount is the number of processed sources.
	SourceCount int

	// ChangedCount is the number of changed sources.
	ChangedCount int

	// FailedCount is the number of failed fetches.
	FailedCount int
}

// SourceEvent is one change or failure of a single source.
type SourceEvent struct {
	RunID     int64
	StartedAt time.Time

	// Kind is "changed" or "fetch_failed".
	Kind string

	// Detail is the new fingerprint for changes and the reason for failures.
	Detail string
}

// SaveRun stores result in one transaction and returns the new run ID.
func (h *HistoryDB) SaveRun(ctx context.Context, result *model.RunResult) (int64, error) {
	if result == nil {
		return 0, errors.New("run result is nil")
	}

	reportJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal run result: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (started_at, finished_at, outcome, source_count, changed_count, failed_count, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		formatTimestamp(result.StartedAt),
		formatTimestamp(result.FinishedAt),
		result.Outcome().String(),
		len(result.Sources),
		len(result.ChangedSources),
		len(result.Failures),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, report := range result.ChangeReports() {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO changes (run_id, source, previous_fp, current_fp, diff_excerpt)
		VALUES (?, ?, ?, ?, ?)`,
			runID, report.Source, report.PreviousFingerprint, report.CurrentFingerprint, report.DiffExcerpt,
		); err != nil {
			return 0, fmt.Errorf("failed to insert change for %s: %w", report.Source, err)
		}
	}

	for _, failure := range result.Failures {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO failures (run_id, source, reason)
		VALUES (?, ?, ?)`,
			runID, failure.Source, failure.Reason,
		); err != nil {
			return 0, fmt.Errorf("failed to insert failure for %s: %w", failure.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
// A limit <= 0 returns every run.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, started_at, finished_at, outcome, source_count, changed_count, failed_count
	FROM runs
	ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			run               RunSummary
			started, finished string
			outcome           string
		)
		if err := rows.Scan(&run.ID, &started, &finished, &outcome,
			&run.SourceCount, &run.ChangedCount, &run.FailedCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(started)
		run.FinishedAt = parseTimestamp(finished)
		if o, err := model.ParseOutcome(outcome); err == nil {
			run.Outcome = o
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun returns the full stored result of run id.
// ErrRunNotFound is returned when no such run exists.
func (h *HistoryDB) GetRun(ctx context.Context, id int64) (*model.RunResult, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var result model.RunResult
	if err := json.Unmarshal([]byte(reportJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}
	return &result, nil
}

// SourceHistory returns every change and fetch failure recorded for
// source, newest first.
func (h *HistoryDB) SourceHistory(ctx context.Context, source string) ([]SourceEvent, error) {
	query := `
	SELECT r.id, r.started_at, 'changed', c.current_fp
	FROM changes c JOIN runs r ON r.id = c.run_id
	WHERE c.source = ?
	UNION ALL
	SELECT r.id, r.started_at, 'fetch_failed', f.reason
	FROM failures f JOIN runs r ON r.id = f.run_id
	WHERE f.source = ?
	ORDER BY 1 DESC`

	rows, err := h.db.QueryContext(ctx, query, source, source)
	if err != nil {
		return nil, fmt.Errorf("failed to get source history: %w", err)
	}
	defer rows.Close()

	var events []SourceEvent
	for rows.Next() {
		var (
			ev      SourceEvent
			started string
		)
		if err := rows.Scan(&ev.RunID, &started, &ev.Kind, &ev.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.StartedAt = parseTimestamp(started)
		events = append(events, ev)
	}

	return events, rows.Err()
}

// DeleteBefore removes runs started before t and returns how many were removed.
func (h *HistoryDB) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := formatTimestamp(t)
	for _, q := range []string{
		`DELETE FROM changes WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`,
		`DELETE FROM failures WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`,
	} {
		if _, err := tx.ExecContext(ctx, q, cutoff); err != nil {
			return 0, fmt.Errorf("failed to delete run details: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return n, nil
}

// storedTimestampLayout sorts lexically in chronological order.
const storedTimestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(storedTimestampLayout)
}

// timestampFormats contains the timestamp formats that may appear in the database.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries every known format and returns the zero time if
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
