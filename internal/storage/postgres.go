package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/release"
	"github.com/rohankatakam/defectset/internal/ticket"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		releases INTEGER,
		ceiling INTEGER,
		tickets INTEGER,
		windows INTEGER,
		row_count INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project, started_at);

	CREATE TABLE IF NOT EXISTS releases (
		run_id TEXT NOT NULL REFERENCES runs(id),
		idx INTEGER NOT NULL,
		release_date DATE NOT NULL,
		names TEXT[],
		PRIMARY KEY (run_id, idx)
	);

	CREATE TABLE IF NOT EXISTS ticket_windows (
		run_id TEXT NOT NULL REFERENCES runs(id),
		ticket_id INTEGER NOT NULL,
		iv INTEGER NOT NULL,
		fv INTEGER NOT NULL,
		PRIMARY KEY (run_id, ticket_id)
	);

	CREATE TABLE IF NOT EXISTS dataset_rows (
		run_id TEXT NOT NULL REFERENCES runs(id),
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
		PRIMARY KEY (run_id, version, path)
	);

	CREATE TABLE IF NOT EXISTS skipped_items (
		run_id TEXT NOT NULL REFERENCES runs(id),
		item TEXT NOT NULL,
		reason TEXT NOT NULL,
		message TEXT,
		PRIMARY KEY (run_id, item, reason)
	);
`

// PostgresStore implements storage using PostgreSQL
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL storage
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &PostgresStore{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Run operations

func (s *PostgresStore) SaveRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, project, started_at, releases, ceiling, tickets, windows, row_count)
		VALUES (:id, :project, :started_at, :releases, :ceiling, :tickets, :windows, :row_count)
		ON CONFLICT (id) DO UPDATE SET
			releases = EXCLUDED.releases,
			ceiling = EXCLUDED.ceiling,
			tickets = EXCLUDED.tickets,
			windows = EXCLUDED.windows,
			row_count = EXCLUDED.row_count
	`

	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, `SELECT * FROM runs WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

func (s *PostgresStore) LatestRun(ctx context.Context, project string) (*Run, error) {
	var run Run
	query := `SELECT * FROM runs WHERE project = $1 ORDER BY started_at DESC LIMIT 1`
	err := s.db.GetContext(ctx, &run, query, project)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return &run, nil
}

// Timeline operations

func (s *PostgresStore) SaveReleases(ctx context.Context, runID string, releases []release.Release) error {
	if len(releases) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO releases (run_id, idx, release_date, names)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id, idx) DO UPDATE SET
			release_date = EXCLUDED.release_date,
			names = EXCLUDED.names
	`
	for _, r := range releases {
		if _, err := tx.ExecContext(ctx, query, runID, r.Index, r.Date, pq.Array(r.Names)); err != nil {
			return fmt.Errorf("save release: %w", err)
		}
	}

	return tx.Commit()
}

// Ticket window operations

func (s *PostgresStore) SaveWindows(ctx context.Context, runID string, windows []ticket.Window) error {
	if len(windows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO ticket_windows (run_id, ticket_id, iv, fv)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id, ticket_id) DO UPDATE SET
			iv = EXCLUDED.iv,
			fv = EXCLUDED.fv
	`
	for _, w := range windows {
		if _, err := tx.ExecContext(ctx, query, runID, w.TicketID, w.IV, w.FV); err != nil {
			return fmt.Errorf("save window: %w", err)
		}
	}

	return tx.Commit()
}

// Dataset operations

func (s *PostgresStore) SaveRows(ctx context.Context, runID string, rows []dataset.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO dataset_rows (
			run_id, version, path, loc_touched, number_revisions, number_bug_fixes,
			loc_added, max_loc_added, chg_set_size, max_chg_set, buggy
		) VALUES (
			:run_id, :version, :path, :loc_touched, :number_revisions, :number_bug_fixes,
			:loc_added, :max_loc_added, :chg_set_size, :max_chg_set, :buggy
		) ON CONFLICT (run_id, version, path) DO UPDATE SET
			loc_touched = EXCLUDED.loc_touched,
			number_revisions = EXCLUDED.number_revisions,
			number_bug_fixes = EXCLUDED.number_bug_fixes,
			loc_added = EXCLUDED.loc_added,
			max_loc_added = EXCLUDED.max_loc_added,
			chg_set_size = EXCLUDED.chg_set_size,
			max_chg_set = EXCLUDED.max_chg_set,
			buggy = EXCLUDED.buggy
	`
	for _, r := range rows {
		if _, err := tx.NamedExecContext(ctx, query, toDatasetRow(runID, r)); err != nil {
			return fmt.Errorf("save dataset row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dataset rows: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"run": runID, "rows": len(rows)}).Debug("saved dataset rows")
	return nil
}

func (s *PostgresStore) GetRows(ctx context.Context, runID string) ([]dataset.Row, error) {
	var stored []datasetRow
	query := `SELECT * FROM dataset_rows WHERE run_id = $1 ORDER BY version, path`
	if err := s.db.SelectContext(ctx, &stored, query, runID); err != nil {
		return nil, fmt.Errorf("get dataset rows: %w", err)
	}

	rows := make([]dataset.Row, 0, len(stored))
	for _, d := range stored {
		rows = append(rows, d.toRow())
	}
	return rows, nil
}

// Skipped item operations

// SaveSkipped records skipped items. A repeated item keeps the latest message.
func (s *PostgresStore) SaveSkipped(ctx context.Context, runID string, items []Skipped) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO skipped_items (run_id, item, reason, message)
		VALUES (:run_id, :item, :reason, :message)
		ON CONFLICT (run_id, item, reason) DO UPDATE SET
			message = EXCLUDED.message
	`
	for _, item := range items {
		item.RunID = runID
		if _, err := tx.NamedExecContext(ctx, query, item); err != nil {
			return fmt.Errorf("save skipped item: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) GetSkipped(ctx context.Context, runID string) ([]Skipped, error) {
	var items []Skipped
	query := `SELECT * FROM skipped_items WHERE run_id = $1 ORDER BY item, reason`
	if err := s.db.SelectContext(ctx, &items, query, runID); err != nil {
		return nil, fmt.Errorf("get skipped items: %w", err)
	}
	return items, nil
}
