package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/release"
	"github.com/rohankatakam/defectset/internal/ticket"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// Run is one dataset build of a project.
type Run struct {
	ID        string    `db:"id"`
	Project   string    `db:"project"`
	StartedAt time.Time `db:"started_at"`
	Releases  int       `db:"releases"`
	Ceiling   int       `db:"ceiling"`
	Tickets   int       `db:"tickets"`
	Windows   int       `db:"windows"`
	Rows      int       `db:"row_count"`
}

// Skipped is an input item left out of a run, kept with the reason so the
// run can be audited or the source fixed and re-run.
type Skipped struct {
	RunID   string `db:"run_id"`
	Item    string `db:"item"`
	Reason  string `db:"reason"`
	Message string `db:"message"`
}

// datasetRow is the flat database shape of a dataset.Row.
type datasetRow struct {
	RunID           string `db:"run_id"`
	Version         int    `db:"version"`
	Path            string `db:"path"`
	LocTouched      int    `db:"loc_touched"`
	NumberRevisions int    `db:"number_revisions"`
	NumberBugFixes  int    `db:"number_bug_fixes"`
	LocAdded        int    `db:"loc_added"`
	MaxLocAdded     int    `db:"max_loc_added"`
	ChgSetSize      int    `db:"chg_set_size"`
	MaxChgSet       int    `db:"max_chg_set"`
	Buggy           bool   `db:"buggy"`
}

func toDatasetRow(runID string, r dataset.Row) datasetRow {
	return datasetRow{
		RunID:           runID,
		Version:         r.Version,
		Path:            r.Path,
		LocTouched:      r.LocTouched,
		NumberRevisions: r.NumberRevisions,
		NumberBugFixes:  r.NumberBugFixes,
		LocAdded:        r.LocAdded,
		MaxLocAdded:     r.MaxLocAdded,
		ChgSetSize:      r.ChgSetSize,
		MaxChgSet:       r.MaxChgSet,
		Buggy:           r.Buggy,
	}
}

func (d datasetRow) toRow() dataset.Row {
	return dataset.Row{
		Version: d.Version,
		Path:    d.Path,
		Record: dataset.Record{
			LocTouched:      d.LocTouched,
			NumberRevisions: d.NumberRevisions,
			NumberBugFixes:  d.NumberBugFixes,
			LocAdded:        d.LocAdded,
			MaxLocAdded:     d.MaxLocAdded,
			ChgSetSize:      d.ChgSetSize,
			MaxChgSet:       d.MaxChgSet,
			Buggy:           d.Buggy,
		},
	}
}

// Store defines the storage interface
type Store interface {
	// Run operations
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	LatestRun(ctx context.Context, project string) (*Run, error)

	// Timeline and ticket windows of a run
	SaveReleases(ctx context.Context, runID string, releases []release.Release) error
	SaveWindows(ctx context.Context, runID string, windows []ticket.Window) error

	// Dataset rows of a run
	SaveRows(ctx context.Context, runID string, rows []dataset.Row) error
	GetRows(ctx context.Context, runID string) ([]dataset.Row, error)

	// Items skipped during a run
	SaveSkipped(ctx context.Context, runID string, items []Skipped) error
	GetSkipped(ctx context.Context, runID string) ([]Skipped, error)

	// Close connection
	Close() error
}
