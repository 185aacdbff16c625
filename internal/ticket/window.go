package ticket

import "sort"

// Window is a ticket's buggy window: releases IV (inclusive) to FV (exclusive).
type Window struct {
	TicketID int `json:"ticket_id" yaml:"ticket_id" db:"ticket_id"`
	IV       int `json:"iv" yaml:"iv" db:"iv"`
	FV       int `json:"fv" yaml:"fv" db:"fv"`
}

// Valid reports whether the window spans at least one release.
func (w Window) Valid() bool {
	return w.IV >= 1 && w.IV < w.FV
}

// WindowSet holds accepted windows keyed by ticket id.
type WindowSet struct {
	byID map[int]Window
}

// NewWindowSet creates an empty set.
func NewWindowSet() *WindowSet {
	return &WindowSet{byID: make(map[int]Window)}
}

// Add registers w unless it is invalid. It reports whether w was accepted.
func (s *WindowSet) Add(w Window) bool {
	if !w.Valid() {
		return false
	}
	s.byID[w.TicketID] = w
	return true
}

// Get returns the window of a ticket.
func (s *WindowSet) Get(ticketID int) (Window, bool) {
	w, ok := s.byID[ticketID]
	return w, ok
}

// Len returns the number of windows.
func (s *WindowSet) Len() int {
	return len(s.byID)
}

// Windows returns all windows ordered by ticket id.
func (s *WindowSet) Windows() []Window {
	out := make([]Window, 0, len(s.byID))
	for _, w := range s.byID {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketID < out[j].TicketID })
	return out
}
