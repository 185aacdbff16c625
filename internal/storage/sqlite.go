package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/release"
	"github.com/rohankatakam/defectset/internal/ticket"
)

// SQLiteStore implements storage using SQLite (for local runs)
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		releases INTEGER,
		ceiling INTEGER,
		tickets INTEGER,
		windows INTEGER,
		row_count INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project, started_at);

	CREATE TABLE IF NOT EXISTS releases (
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		release_date DATETIME NOT NULL,
		names TEXT,
		PRIMARY KEY (run_id, idx),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS ticket_windows (
		run_id TEXT NOT NULL,
		ticket_id INTEGER NOT NULL,
		iv INTEGER NOT NULL,
		fv INTEGER NOT NULL,
		PRIMARY KEY (run_id, ticket_id),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS dataset_rows (
		run_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		path TEXT NOT NULL,
		loc_touched INTEGER,
		number_revisions INTEGER,
		number_bug_fixes INTEGER,
		loc_added INTEGER,
		max_loc_added INTEGER,
		chg_set_size INTEGER,
		max_chg_set INTEGER,
		buggy BOOLEAN,
		PRIMARY KEY (run_id, version, path),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS skipped_items (
		run_id TEXT NOT NULL,
		item TEXT NOT NULL,
		reason TEXT NOT NULL,
		message TEXT,
		PRIMARY KEY (run_id, item, reason),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Run operations
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	query := `
		INSERT OR REPLACE INTO runs
		(id, project, started_at, releases, ceiling, tickets, windows, row_count)
		VALUES (:id, :project, :started_at, :releases, :ceiling, :tickets, :windows, :row_count)
	`
	_, err := s.db.NamedExecContext(ctx, query, run)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, `SELECT * FROM runs WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) LatestRun(ctx context.Context, project string) (*Run, error) {
	var run Run
	query := `SELECT * FROM runs WHERE project = ? ORDER BY started_at DESC LIMIT 1`
	err := s.db.GetContext(ctx, &run, query, project)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// Timeline operations
func (s *SQLiteStore) SaveReleases(ctx context.Context, runID string, releases []release.Release) error {
	if len(releases) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT OR REPLACE INTO releases (run_id, idx, release_date, names) VALUES (?, ?, ?, ?)`
	for _, r := range releases {
		if _, err := tx.ExecContext(ctx, query, runID, r.Index, r.Date, strings.Join(r.Names, ",")); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Ticket window operations
func (s *SQLiteStore) SaveWindows(ctx context.Context, runID string, windows []ticket.Window) error {
	if len(windows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT OR REPLACE INTO ticket_windows (run_id, ticket_id, iv, fv) VALUES (?, ?, ?, ?)`
	for _, w := range windows {
		if _, err := tx.ExecContext(ctx, query, runID, w.TicketID, w.IV, w.FV); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Dataset operations
func (s *SQLiteStore) SaveRows(ctx context.Context, runID string, rows []dataset.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT OR REPLACE INTO dataset_rows
		(run_id, version, path, loc_touched, number_revisions, number_bug_fixes,
		 loc_added, max_loc_added, chg_set_size, max_chg_set, buggy)
		VALUES (:run_id, :version, :path, :loc_touched, :number_revisions, :number_bug_fixes,
		 :loc_added, :max_loc_added, :chg_set_size, :max_chg_set, :buggy)
	`
	for _, r := range rows {
		if _, err := tx.NamedExecContext(ctx, query, toDatasetRow(runID, r)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"run": runID, "rows": len(rows)}).Debug("saved dataset rows")
	return nil
}

func (s *SQLiteStore) GetRows(ctx context.Context, runID string) ([]dataset.Row, error) {
	var stored []datasetRow
	query := `SELECT * FROM dataset_rows WHERE run_id = ? ORDER BY version, path`
	if err := s.db.SelectContext(ctx, &stored, query, runID); err != nil {
		return nil, err
	}

	rows := make([]dataset.Row, 0, len(stored))
	for _, d := range stored {
		rows = append(rows, d.toRow())
	}
	return rows, nil
}

// Skipped item operations
func (s *SQLiteStore) SaveSkipped(ctx context.Context, runID string, items []Skipped) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT OR REPLACE INTO skipped_items (run_id, item, reason, message) VALUES (?, ?, ?, ?)`
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, query, runID, item.Item, item.Reason, item.Message); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetSkipped(ctx context.Context, runID string) ([]Skipped, error) {
	var items []Skipped
	query := `SELECT * FROM skipped_items WHERE run_id = ? ORDER BY item, reason`
	if err := s.db.SelectContext(ctx, &items, query, runID); err != nil {
		return nil, err
	}
	return items, nil
}
