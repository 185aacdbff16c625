// Package release orders a project's dated releases into a timeline with
// dense 1-based indices and answers date-to-release lookups.
package release

import (
	"sort"
	"time"

	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/models"
)

// Release is one dated bucket of the timeline. Every version name released
// on the same day shares the bucket.
type Release struct {
	Index int
	Date  time.Time
	Names []string
}

// Timeline is an immutable, date-ordered list of releases.
type Timeline struct {
	releases []Release
	byName   map[string]int
}

// Day truncates t to its calendar day, keeping the day as seen in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BuildTimeline groups versions by release day, sorts the days ascending
// and assigns indices 1..N. Names within a day keep discovery order.
func BuildTimeline(versions []models.Version) (*Timeline, error) {
	if len(versions) == 0 {
		return nil, errors.EmptyTimeline("")
	}

	buckets := make(map[time.Time]*Release)
	var days []time.Time

	for _, v := range versions {
		day := Day(v.Date)
		r, ok := buckets[day]
		if !ok {
			r = &Release{Date: day}
			buckets[day] = r
			days = append(days, day)
		}
		if v.Name != "" {
			r.Names = append(r.Names, v.Name)
		}
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	tl := &Timeline{
		releases: make([]Release, 0, len(days)),
		byName:   make(map[string]int),
	}
	for i, day := range days {
		r := buckets[day]
		r.Index = i + 1
		tl.releases = append(tl.releases, *r)
		for _, name := range r.Names {
			// first (oldest) bucket wins for names reused across dates
			if _, seen := tl.byName[name]; !seen {
				tl.byName[name] = r.Index
			}
		}
	}

	return tl, nil
}

// Len returns the number of releases.
func (t *Timeline) Len() int {
	return len(t.releases)
}

// Releases returns a copy of the ordered releases.
func (t *Timeline) Releases() []Release {
	out := make([]Release, len(t.releases))
	copy(out, t.releases)
	return out
}

// Release returns the release with the given 1-based index.
func (t *Timeline) Release(index int) (Release, bool) {
	if index < 1 || index > len(t.releases) {
		return Release{}, false
	}
	return t.releases[index-1], true
}

// IndexOf returns the index of the release carrying name.
func (t *Timeline) IndexOf(name string) (int, bool) {
	idx, ok := t.byName[name]
	return idx, ok
}

// IndexAtOrAfter returns the smallest index whose release day is on or
// after date. Dates past the last release clamp to the last index.
func (t *Timeline) IndexAtOrAfter(date time.Time) int {
	day := Day(date)
	for _, r := range t.releases {
		if !r.Date.Before(day) {
			return r.Index
		}
	}
	return len(t.releases)
}

// IndexAtOrBefore is the fix-version lookup. It scans forward through the
// releases and returns the first one dated on or after date, clamping to
// the last index, so it agrees with IndexAtOrAfter for every input.
func (t *Timeline) IndexAtOrBefore(date time.Time) int {
	day := Day(date)
	last := 0
	for _, r := range t.releases {
		last = r.Index
		if r.Date.Equal(day) || r.Date.After(day) {
			break
		}
	}
	return last
}

// CommitIndex returns the release a commit belongs to: the first release
// dated strictly after the commit day, or the last release.
func (t *Timeline) CommitIndex(date time.Time) int {
	day := Day(date)
	for _, r := range t.releases {
		if r.Date.After(day) {
			return r.Index
		}
	}
	return len(t.releases)
}

// FirstHalfCeiling is the exclusive version ceiling that restricts the
// dataset to the first half of the releases.
func (t *Timeline) FirstHalfCeiling() int {
	return len(t.releases)/2 + 1
}
