package ticket

import (
	"regexp"
	"sort"
	"strconv"
)

// Linker associates commit messages with resolved tickets through
// references of the form "<PROJECT>-<id>".
type Linker struct {
	pattern *regexp.Regexp
	byID    map[string]Window
}

// NewLinker creates a linker for a project key over the resolved windows.
func NewLinker(projectKey string, windows *WindowSet) *Linker {
	byID := make(map[string]Window, windows.Len())
	for _, w := range windows.Windows() {
		byID[strconv.Itoa(w.TicketID)] = w
	}
	return &Linker{
		pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(projectKey) + `-(\d+)\b`),
		byID:    byID,
	}
}

// WindowsForCommit returns the windows of every resolved ticket referenced
// in message, as whole-word case-insensitive matches, ordered by ticket id.
// "PROJ-0012" does not reference ticket 12.
func (l *Linker) WindowsForCommit(message string) []Window {
	if len(l.byID) == 0 {
		return nil
	}

	seen := make(map[int]struct{})
	var out []Window
	for _, m := range l.pattern.FindAllStringSubmatch(message, -1) {
		w, ok := l.byID[m[1]]
		if !ok {
			continue
		}
		if _, dup := seen[w.TicketID]; dup {
			continue
		}
		seen[w.TicketID] = struct{}{}
		out = append(out, w)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TicketID < out[j].TicketID })
	return out
}
