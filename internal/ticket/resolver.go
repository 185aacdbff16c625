package ticket

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/defectset/internal/release"
)

// Outcome is what Resolve did with a ticket.
type Outcome int

const (
	// OutcomeWindow - IV came from affected versions and the window was registered
	OutcomeWindow Outcome = iota
	// OutcomeDeferred - no usable affected version, queued for the proportion phase
	OutcomeDeferred
	// OutcomeDropped - the bounds cannot form a window (FV <= IV)
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWindow:
		return "window"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Summary counts the results of ResolveAll.
type Summary struct {
	Tickets          int `json:"tickets" yaml:"tickets"`
	AffectedVersion  int `json:"affected_version" yaml:"affected_version"`
	Proportion       int `json:"proportion" yaml:"proportion"`
	Dropped          int `json:"dropped" yaml:"dropped"`
	DirectProportion int `json:"direct_proportion" yaml:"direct_proportion"`
}

// Resolver computes OV, FV and IV for tickets of one project. It owns the
// project's proportion estimator and window set.
type Resolver struct {
	timeline  *release.Timeline
	estimator *ProportionEstimator
	windows   *WindowSet
	tickets   map[int]*Ticket
	logger    *logrus.Logger
}

// NewResolver creates a resolver bound to a project's timeline.
func NewResolver(timeline *release.Timeline, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{
		timeline:  timeline,
		estimator: NewProportionEstimator(),
		windows:   NewWindowSet(),
		tickets:   make(map[int]*Ticket),
		logger:    logger,
	}
}

// Windows returns the accepted windows.
func (r *Resolver) Windows() *WindowSet {
	return r.windows
}

// Estimator returns the proportion estimator.
func (r *Resolver) Estimator() *ProportionEstimator {
	return r.estimator
}

// Resolve runs the affected-version phase for one ticket.
func (r *Resolver) Resolve(t *Ticket) Outcome {
	r.tickets[t.ID] = t

	t.OV = r.timeline.IndexAtOrAfter(t.Created)
	t.FV = r.timeline.IndexAtOrBefore(t.Resolved)
	t.IV = 0
	if len(t.AffectedVersions) > 0 {
		t.IV = r.injectedFromAffected(t)
	}

	if t.IV == 0 {
		r.estimator.Defer(t.ID, t.OV, t.FV)
		return OutcomeDeferred
	}

	if t.FV != t.OV && t.FV != t.IV && t.IV < t.FV {
		p := float64(t.FV-t.IV) / float64(t.FV-t.OV)
		if p > 0 {
			t.Proportion = p
			t.HasProportion = true
			r.estimator.RecordDirect(t.ID, p)
		}
	}

	if !r.windows.Add(Window{TicketID: t.ID, IV: t.IV, FV: t.FV}) {
		r.logger.WithFields(logrus.Fields{
			"ticket": t.Key,
			"iv":     t.IV,
			"fv":     t.FV,
		}).Debug("dropping ticket with empty window")
		return OutcomeDropped
	}
	return OutcomeWindow
}

// injectedFromAffected returns the oldest release named in the ticket's
// affected versions that was released before the ticket was opened, or 0.
func (r *Resolver) injectedFromAffected(t *Ticket) int {
	affected := make(map[string]struct{}, len(t.AffectedVersions))
	for _, name := range t.AffectedVersions {
		affected[name] = struct{}{}
	}

	created := release.Day(t.Created)
	for _, rel := range r.timeline.Releases() {
		if !rel.Date.Before(created) {
			break
		}
		for _, name := range rel.Names {
			if _, ok := affected[name]; ok {
				return rel.Index
			}
		}
	}
	return 0
}

// ResolvePending runs the proportion phase over every deferred ticket.
func (r *Resolver) ResolvePending() (accepted, dropped int) {
	windows, droppedIDs := r.estimator.ResolvePending()
	for _, w := range windows {
		if r.windows.Add(w) {
			if t, ok := r.tickets[w.TicketID]; ok {
				t.IV = w.IV
			}
			accepted++
		}
	}
	for _, id := range droppedIDs {
		r.logger.WithField("ticket_id", id).Debug("dropping deferred ticket with empty window")
	}
	return accepted, len(droppedIDs)
}

// ResolveAll resolves every ticket in two phases: the affected-version
// phase over all tickets in ascending id order, then the proportion phase.
// The proportion phase must see every direct proportion, so the order is fixed.
func (r *Resolver) ResolveAll(tickets []*Ticket) Summary {
	ordered := make([]*Ticket, len(tickets))
	copy(ordered, tickets)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	s := Summary{Tickets: len(ordered)}
	for _, t := range ordered {
		switch r.Resolve(t) {
		case OutcomeWindow:
			s.AffectedVersion++
		case OutcomeDropped:
			s.Dropped++
		}
	}
	s.DirectProportion = r.estimator.Direct()

	accepted, dropped := r.ResolvePending()
	s.Proportion = accepted
	s.Dropped += dropped

	r.logger.WithFields(logrus.Fields{
		"tickets":           s.Tickets,
		"affected_version":  s.AffectedVersion,
		"proportion":        s.Proportion,
		"dropped":           s.Dropped,
		"direct_proportion": s.DirectProportion,
	}).Info("resolved ticket windows")

	return s
}
