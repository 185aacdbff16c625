// Package pipeline runs a project end to end: timeline, ticket windows,
// commit walk and dataset export.
package pipeline

import (
	"context"

	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/models"
)

// ReleaseSource lists a project's released versions.
type ReleaseSource interface {
	GetReleases(ctx context.Context, project string) ([]models.Version, error)
}

// TicketSource lists a project's fixed tickets.
type TicketSource interface {
	GetResolvedTickets(ctx context.Context, project string) ([]models.RawTicket, error)
}

// CommitSource walks commits oldest first. The order is trusted as given.
type CommitSource interface {
	ForEachCommit(ctx context.Context, fn func(models.Commit) error) error
}

// HeadLister is implemented by commit sources that can list the files at
// the tip of history. It enables head-file seeding.
type HeadLister interface {
	HeadFiles() ([]string, error)
}

// Sink receives the finished dataset of a project.
type Sink interface {
	WriteDataset(ctx context.Context, project string, header []string, rows []dataset.Row) error
}

// SkipReporter is implemented by commit sources that leave out commits they
// cannot read. It is consulted after the walk.
type SkipReporter interface {
	SkippedCommits() []models.SkippedCommit
}

// RunRecorder receives the full result of a project run.
type RunRecorder interface {
	RecordRun(ctx context.Context, result *Result) error
}

// Project bundles the sources of one project. OpenCommits is called once
// per run; a returned source implementing io.Closer is closed afterwards.
type Project struct {
	Key         string
	Releases    ReleaseSource
	Tickets     TicketSource
	OpenCommits func(ctx context.Context) (CommitSource, error)
}
