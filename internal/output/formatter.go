// Package output renders dataset rows and run artifacts: CSV and ARFF
// datasets, walk-forward splits, monthly fix counts, run manifests and the
// terminal summary table.
package output

import (
	"io"
	"strings"

	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/errors"
)

// Format names a dataset encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatARFF Format = "arff"
)

// Dataset is a named set of rows ready for encoding. Relation is the
// project key, used as the ARFF relation name.
type Dataset struct {
	Relation string
	Rows     []dataset.Row
}

// Formatter defines dataset encoding
type Formatter interface {
	Format(ds Dataset, w io.Writer) error
}

// NewFormatter creates the formatter for f
func NewFormatter(f Format) Formatter {
	switch f {
	case FormatARFF:
		return &ARFFFormatter{}
	default:
		return &CSVFormatter{}
	}
}

// ParseFormat accepts "csv" or "arff", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatARFF:
		return FormatARFF, nil
	default:
		return "", errors.ValidationErrorf("unknown output format %q", s)
	}
}
