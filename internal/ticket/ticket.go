// Package ticket resolves each fixed ticket's buggy window [IV, FV) against
// a release timeline, either from the tracker's affected versions or, when
// those are missing or unusable, from a running proportion estimate.
package ticket

import (
	"strconv"
	"strings"
	"time"

	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/models"
)

const dateLayout = "2006-01-02"

// Ticket is a fixed ticket with its derived release indices.
// OV, FV and IV are zero until the ticket is resolved.
type Ticket struct {
	ID               int
	Key              string
	Created          time.Time
	Resolved         time.Time
	AffectedVersions []string

	OV            int
	FV            int
	IV            int
	Proportion    float64
	HasProportion bool
}

// Parse converts a raw tracker ticket. Keys look like "PROJ-123"; dates
// may carry a time part ("2013-01-01T10:00:00.000+0000"), only the day is used.
func Parse(raw models.RawTicket) (*Ticket, error) {
	id, err := parseKey(raw.Key)
	if err != nil {
		return nil, err
	}

	created, err := parseDay(raw.Created)
	if err != nil {
		return nil, errors.MalformedDate(err, "created", raw.Created).WithContext("ticket", raw.Key)
	}

	resolved, err := parseDay(raw.Resolved)
	if err != nil {
		return nil, errors.MalformedDate(err, "resolved", raw.Resolved).WithContext("ticket", raw.Key)
	}

	return &Ticket{
		ID:               id,
		Key:              raw.Key,
		Created:          created,
		Resolved:         resolved,
		AffectedVersions: raw.AffectedVersions,
	}, nil
}

func parseKey(key string) (int, error) {
	i := strings.LastIndex(key, "-")
	if i < 0 || i == len(key)-1 {
		return 0, errors.ValidationErrorf("ticket key %q has no numeric id", key)
	}
	id, err := strconv.Atoi(key[i+1:])
	if err != nil || id <= 0 {
		return 0, errors.ValidationErrorf("ticket key %q has no numeric id", key)
	}
	return id, nil
}

func parseDay(s string) (time.Time, error) {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	return time.Parse(dateLayout, strings.TrimSpace(s))
}
