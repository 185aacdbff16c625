package pipeline

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/models"
	"github.com/rohankatakam/defectset/internal/output"
	"github.com/rohankatakam/defectset/internal/release"
	"github.com/rohankatakam/defectset/internal/ticket"
)

// Options tune a Runner.
type Options struct {
	// SeedHeadFiles creates empty records for every file at HEAD in the
	// versions below the ceiling, so untouched files appear as clean rows.
	SeedHeadFiles bool
}

// Runner coordinates dataset builds. It holds no per-project state; every
// Run builds its own timeline, resolver and accumulator.
type Runner struct {
	sinks     []Sink
	recorders []RunRecorder
	opts      Options
	logger    *logrus.Logger
	now       func() time.Time
}

// NewRunner creates a runner
func NewRunner(logger *logrus.Logger, opts Options) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// AddSink registers a dataset sink.
func (r *Runner) AddSink(s Sink) *Runner {
	r.sinks = append(r.sinks, s)
	return r
}

// AddRecorder registers a run recorder.
func (r *Runner) AddRecorder(rec RunRecorder) *Runner {
	r.recorders = append(r.recorders, rec)
	return r
}

// Run builds the dataset of one project and hands it to every sink and
// recorder.
func (r *Runner) Run(ctx context.Context, p Project) (*Result, error) {
	startTime := r.now()
	log := r.logger.WithField("project", p.Key)
	log.Info("Starting dataset build")

	result := &Result{
		RunID:        uuid.New().String(),
		Project:      p.Key,
		StartedAt:    startTime,
		MonthlyFixes: output.MonthlyFixes{},
		Skipped:      make(map[string]int),
	}

	// Phase 1: release timeline
	versions, err := p.Releases.GetReleases(ctx, p.Key)
	if err != nil {
		return nil, sourceError(err, "fetch releases").WithContext("project", p.Key)
	}
	timeline, err := release.BuildTimeline(versions)
	if err != nil {
		if stderrors.Is(err, errors.ErrEmptyTimeline) {
			return nil, errors.EmptyTimeline(p.Key)
		}
		return nil, err
	}
	result.Timeline = timeline
	result.Ceiling = timeline.FirstHalfCeiling()

	log.WithFields(logrus.Fields{
		"releases": timeline.Len(),
		"ceiling":  result.Ceiling,
	}).Info("Built release timeline")

	// Phase 2: ticket windows
	raw, err := p.Tickets.GetResolvedTickets(ctx, p.Key)
	if err != nil {
		return nil, sourceError(err, "fetch tickets").WithContext("project", p.Key)
	}
	tickets := r.parseTickets(log, raw, result)

	resolver := ticket.NewResolver(timeline, r.logger)
	result.Tickets = resolver.ResolveAll(tickets)
	result.Windows = resolver.Windows().Windows()

	// Phase 3: commit walk
	acc := dataset.NewAccumulator()
	if err := r.walkCommits(ctx, p, resolver.Windows(), timeline, acc, result); err != nil {
		return nil, err
	}

	result.Rows = acc.Rows(result.Ceiling)
	result.Duration = r.now().Sub(startTime)

	// Phase 4: export
	for _, s := range r.sinks {
		if err := s.WriteDataset(ctx, p.Key, dataset.Columns, result.Rows); err != nil {
			return nil, err
		}
	}
	for _, rec := range r.recorders {
		if err := rec.RecordRun(ctx, result); err != nil {
			return nil, err
		}
	}

	log.WithFields(logrus.Fields{
		"run_id":   result.RunID,
		"duration": result.Duration.String(),
		"commits":  result.Commits,
		"linked":   result.LinkedCommits,
		"beyond":   result.BeyondCeiling,
		"windows":  len(result.Windows),
		"rows":     len(result.Rows),
	}).Info("Dataset build completed")

	return result, nil
}

func (r *Runner) parseTickets(log *logrus.Entry, raw []models.RawTicket, result *Result) []*ticket.Ticket {
	seen := make(map[int]struct{}, len(raw))
	tickets := make([]*ticket.Ticket, 0, len(raw))
	for _, rt := range raw {
		t, err := ticket.Parse(rt)
		if err != nil {
			result.skip(rt.Key, SkipMalformedTicket, err.Error())
			log.WithError(err).WithField("ticket", rt.Key).Warn("skipping malformed ticket")
			continue
		}
		if _, dup := seen[t.ID]; dup {
			result.skip(rt.Key, SkipDuplicateTicket, "ticket listed more than once")
			log.WithField("ticket", rt.Key).Warn("skipping duplicate ticket")
			continue
		}
		seen[t.ID] = struct{}{}
		tickets = append(tickets, t)
	}
	return tickets
}

func (r *Runner) walkCommits(ctx context.Context, p Project, windows *ticket.WindowSet, timeline *release.Timeline, acc *dataset.Accumulator, result *Result) error {
	source, err := p.OpenCommits(ctx)
	if err != nil {
		return sourceError(err, "open commit source").WithContext("project", p.Key)
	}
	if c, ok := source.(io.Closer); ok {
		defer c.Close()
	}

	if r.opts.SeedHeadFiles {
		if lister, ok := source.(HeadLister); ok {
			paths, err := lister.HeadFiles()
			if err != nil {
				return sourceError(err, "list head files").WithContext("project", p.Key)
			}
			result.Seeded = acc.Seed(paths, result.Ceiling)
		}
	}

	linker := ticket.NewLinker(p.Key, windows)
	lastFix := make(map[int]time.Time)

	err = source.ForEachCommit(ctx, func(c models.Commit) error {
		result.Commits++
		if !c.HasParent {
			result.Skipped[SkipRootCommit]++
			return nil
		}
		result.MonthlyFixes.Touch(c.Timestamp)

		linked := linker.WindowsForCommit(c.Message)
		if len(linked) > 0 {
			result.LinkedCommits++
		}
		for _, w := range linked {
			if c.Timestamp.After(lastFix[w.TicketID]) {
				lastFix[w.TicketID] = c.Timestamp
			}
		}

		version := timeline.CommitIndex(c.Timestamp)
		if version >= result.Ceiling {
			result.BeyondCeiling++
			return nil
		}
		for _, change := range c.Files {
			if err := acc.MergeCommitChange(version, change, linked, result.Ceiling); err != nil {
				return err
			}
			acc.PropagateBuggy(linked, change, result.Ceiling)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if reporter, ok := source.(SkipReporter); ok {
		for _, s := range reporter.SkippedCommits() {
			result.skip(s.SHA, SkipMalformedCommit, s.Reason)
		}
	}

	for _, ts := range lastFix {
		result.MonthlyFixes.Add(ts)
	}
	return nil
}

// Outcome is the result or failure of one project in RunAll.
type Outcome struct {
	Project string
	Result  *Result
	Err     error
}

// RunAll builds every project with at most workers concurrent runs. A
// failing project does not stop the others; only cancellation of ctx does.
func (r *Runner) RunAll(ctx context.Context, projects []Project, workers int) ([]Outcome, error) {
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]Outcome, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range projects {
		i, p := i, p
		g.Go(func() error {
			res, err := r.Run(gctx, p)
			outcomes[i] = Outcome{Project: p.Key, Result: res, Err: err}
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.logger.WithError(err).WithField("project", p.Key).Error("Dataset build failed")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// sourceError keeps typed errors from the sources and wraps anything else
// as a source failure.
func sourceError(err error, message string) *errors.Error {
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		return errors.Wrap(err, typed.Type, typed.Severity, message)
	}
	return errors.SourceError(err, message)
}
