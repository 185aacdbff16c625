// Package dataset accumulates per-(release, file) change metrics and the
// buggy label derived from resolved ticket windows.
package dataset

import (
	"sort"

	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/models"
	"github.com/rohankatakam/defectset/internal/ticket"
)

// Key identifies a record by release index and file path.
type Key struct {
	Version int
	Path    string
}

// Record holds the accumulated metrics of one file in one release.
type Record struct {
	LocTouched      int
	NumberRevisions int
	NumberBugFixes  int
	LocAdded        int
	MaxLocAdded     int
	ChgSetSize      int
	MaxChgSet       int
	Buggy           bool
}

// AvgChgSet is ChgSetSize / NumberRevisions, or 0 for an untouched record.
func (r Record) AvgChgSet() int {
	if r.NumberRevisions == 0 {
		return 0
	}
	return r.ChgSetSize / r.NumberRevisions
}

// AvgLocAdded is LocAdded / NumberRevisions, or 0 for an untouched record.
func (r Record) AvgLocAdded() int {
	if r.NumberRevisions == 0 {
		return 0
	}
	return r.LocAdded / r.NumberRevisions
}

// Accumulator owns every record of a single project run. It is not safe for
// concurrent use; each project gets its own instance.
type Accumulator struct {
	records map[Key]*Record
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{records: make(map[Key]*Record)}
}

// EnsureRecord creates a zeroed record for (version, path) if absent.
// It reports whether a record was created.
func (a *Accumulator) EnsureRecord(version int, path string) bool {
	k := Key{Version: version, Path: path}
	if _, ok := a.records[k]; ok {
		return false
	}
	a.records[k] = &Record{}
	return true
}

// Seed creates records for every path in every version 1..ceiling-1.
func (a *Accumulator) Seed(paths []string, ceiling int) int {
	created := 0
	for v := 1; v < ceiling; v++ {
		for _, p := range paths {
			if a.EnsureRecord(v, p) {
				created++
			}
		}
	}
	return created
}

// MergeCommitChange folds one file change of a commit into the record of
// version. Metrics only move while version < ceiling.
func (a *Accumulator) MergeCommitChange(version int, change models.FileChange, windows []ticket.Window, ceiling int) error {
	a.EnsureRecord(version, change.Path)
	rec, ok := a.records[Key{Version: version, Path: change.Path}]
	if !ok {
		return errors.InconsistentKey(version, change.Path)
	}

	if version >= ceiling {
		return nil
	}

	added, touched := lineCounts(change.Edits)

	rec.LocTouched += touched
	rec.NumberRevisions++
	rec.LocAdded += added
	if added > rec.MaxLocAdded {
		rec.MaxLocAdded = added
	}
	rec.ChgSetSize += change.ChangeSetSize
	if change.ChangeSetSize > rec.MaxChgSet {
		rec.MaxChgSet = change.ChangeSetSize
	}

	if len(windows) > 0 {
		rec.NumberBugFixes += len(windows)
		rec.Buggy = true
	}
	return nil
}

// PropagateBuggy marks the changed file buggy in every release of each
// window [IV, min(FV, ceiling)). Only modifications and deletions count:
// the file must have existed before the fix.
func (a *Accumulator) PropagateBuggy(windows []ticket.Window, change models.FileChange, ceiling int) int {
	if change.Kind != models.ChangeModify && change.Kind != models.ChangeDelete {
		return 0
	}

	marked := 0
	for _, w := range windows {
		end := w.FV
		if ceiling < end {
			end = ceiling
		}
		for v := w.IV; v < end; v++ {
			a.EnsureRecord(v, change.Path)
			rec := a.records[Key{Version: v, Path: change.Path}]
			if !rec.Buggy {
				rec.Buggy = true
				marked++
			}
		}
	}
	return marked
}

// Get returns a copy of the record for (version, path).
func (a *Accumulator) Get(version int, path string) (Record, bool) {
	rec, ok := a.records[Key{Version: version, Path: path}]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of records.
func (a *Accumulator) Len() int {
	return len(a.records)
}

// Rows returns every record with version <= maxVersion ordered by version
// then path.
func (a *Accumulator) Rows(maxVersion int) []Row {
	rows := make([]Row, 0, len(a.records))
	for k, rec := range a.records {
		if k.Version > maxVersion {
			continue
		}
		rows = append(rows, Row{Version: k.Version, Path: k.Path, Record: *rec})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Version != rows[j].Version {
			return rows[i].Version < rows[j].Version
		}
		return rows[i].Path < rows[j].Path
	})
	return rows
}

// lineCounts returns inserted lines and touched lines (inserted, deleted and
// replaced) over the edits of one file. Replaced ranges count their old side.
func lineCounts(edits []models.Edit) (added, touched int) {
	for _, e := range edits {
		switch e.Kind {
		case models.EditInsert:
			added += e.NewLines
			touched += e.NewLines
		case models.EditDelete:
			touched += e.OldLines
		case models.EditReplace:
			touched += e.OldLines
		}
	}
	return added, touched
}
