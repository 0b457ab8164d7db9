package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nh-go/internal/database/migrations"
	"nh-go/internal/nh"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteHistory implements nh.History using SQLite.
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

// NewSQLiteHistory opens (creating if needed) the history database at path and
// brings its schema up to date. path can be a file path or ":memory:".
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}

	h := &SQLiteHistory{db: db, path: path}
	if err := h.CheckMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// nh is single-threaded; one connection also keeps ":memory:" databases
	// from splitting across the pool.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Another nh may be cleaning at the same time, e.g. a timer-driven `clean all`.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// StartRun inserts a new clean run.
func (s *SQLiteHistory) StartRun(run *nh.CleanRun) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO clean_runs (id, scope, parameters, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Scope, run.Parameters, run.Status, run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating clean run: %w", err)
	}
	return nil
}

// RecordRemoval adds a removed path to a run.
func (s *SQLiteHistory) RecordRemoval(runID string, kind nh.RemovalKind, path string, at time.Time) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO removed_paths (run_id, kind, path, removed_at) VALUES (?, ?, ?, ?)`,
		runID, string(kind), path, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording removed path: %w", err)
	}
	return nil
}

// FinishRun stores the final status of a run.
func (s *SQLiteHistory) FinishRun(runID string, status string, at time.Time) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE clean_runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, at.UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("finishing clean run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing clean run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing clean run: no run with id %s", runID)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first, with their removal counts.
func (s *SQLiteHistory) ListRuns(limit int) ([]*nh.CleanRun, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT r.id, r.scope, r.parameters, r.status, r.started_at, r.finished_at,
		       (SELECT COUNT(*) FROM removed_paths p WHERE p.run_id = r.id)
		FROM clean_runs r
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing clean runs: %w", err)
	}
	defer rows.Close()

	var runs []*nh.CleanRun
	for rows.Next() {
		var run nh.CleanRun
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.Scope, &run.Parameters, &run.Status, &run.StartedAt, &finished, &run.RemovedCount); err != nil {
			return nil, fmt.Errorf("scanning clean run: %w", err)
		}
		if finished.Valid {
			run.FinishedAt = finished.Time
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing clean runs: %w", err)
	}
	return runs, nil
}

// RemovedPaths returns the paths removed by a run in removal order.
func (s *SQLiteHistory) RemovedPaths(runID string) ([]nh.Removal, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT kind, path FROM removed_paths WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing removed paths: %w", err)
	}
	defer rows.Close()

	var removals []nh.Removal
	for rows.Next() {
		var kind, path string
		if err := rows.Scan(&kind, &path); err != nil {
			return nil, fmt.Errorf("scanning removed path: %w", err)
		}
		removals = append(removals, nh.Removal{Kind: nh.RemovalKind(kind), Path: path})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing removed paths: %w", err)
	}
	return removals, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteHistory) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteHistory) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteHistory) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteHistory implements nh.History interface
var _ nh.History = (*SQLiteHistory)(nil)
