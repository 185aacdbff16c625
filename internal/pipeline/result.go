package pipeline

import (
	"time"

	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/output"
	"github.com/rohankatakam/defectset/internal/release"
	"github.com/rohankatakam/defectset/internal/ticket"
)

// Skip counter names.
const (
	SkipMalformedTicket = "malformed_tickets"
	SkipDuplicateTicket = "duplicate_tickets"
	SkipRootCommit      = "root_commits"
	SkipMalformedCommit = "malformed_commits"
)

// SkippedItem is an input left out of the run.
type SkippedItem struct {
	Item    string
	Reason  string
	Message string
}

// Result is everything a project run produced.
type Result struct {
	RunID     string
	Project   string
	StartedAt time.Time
	Duration  time.Duration

	Timeline *release.Timeline
	Ceiling  int

	Tickets ticket.Summary
	Windows []ticket.Window

	Commits       int
	LinkedCommits int
	// commits dated in or after the ceiling release, linked but not measured
	BeyondCeiling int
	Seeded        int
	Rows          []dataset.Row
	MonthlyFixes  output.MonthlyFixes
	Skipped       map[string]int
	SkippedItems  []SkippedItem
}

func (r *Result) skip(item, reason, message string) {
	r.Skipped[reason]++
	r.SkippedItems = append(r.SkippedItems, SkippedItem{Item: item, Reason: reason, Message: message})
}

// BuggyRows counts rows labelled buggy.
func (r *Result) BuggyRows() int {
	n := 0
	for _, row := range r.Rows {
		if row.Buggy {
			n++
		}
	}
	return n
}

// Manifest describes the run for the YAML manifest.
func (r *Result) Manifest() *output.Manifest {
	return &output.Manifest{
		Project:     r.Project,
		RunID:       r.RunID,
		GeneratedAt: r.StartedAt.UTC(),
		Releases:    r.Timeline.Len(),
		Ceiling:     r.Ceiling,
		Tickets:     r.Tickets.Tickets,
		Windows:     len(r.Windows),
		Proportion:  r.Tickets.Proportion,
		Dropped:     r.Tickets.Dropped,
		Rows:        len(r.Rows),
		BuggyRows:   r.BuggyRows(),
		Skipped:     r.Skipped,
	}
}

// SummaryRow is the run's line in the build summary table.
func (r *Result) SummaryRow() output.SummaryRow {
	return output.SummaryRow{
		Project:    r.Project,
		Releases:   r.Timeline.Len(),
		Ceiling:    r.Ceiling,
		Tickets:    r.Tickets.Tickets,
		Windows:    len(r.Windows),
		Proportion: r.Tickets.Proportion,
		Dropped:    r.Tickets.Dropped,
		Rows:       len(r.Rows),
		BuggyRows:  r.BuggyRows(),
		Elapsed:    r.Duration,
	}
}
