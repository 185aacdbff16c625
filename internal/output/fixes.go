package output

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// MonthFormat is the month key layout used in fix counts.
const MonthFormat = "2006-01"

// MonthlyFixes counts fixed tickets per month. A month seen in the history
// with no fixes keeps a zero count.
type MonthlyFixes map[string]int

// Touch registers the month of t with no additional fixes.
func (m MonthlyFixes) Touch(t time.Time) {
	key := t.UTC().Format(MonthFormat)
	if _, ok := m[key]; !ok {
		m[key] = 0
	}
}

// Add counts one fixed ticket in the month of t.
func (m MonthlyFixes) Add(t time.Time) {
	m[t.UTC().Format(MonthFormat)]++
}

// Months returns the month keys in chronological order.
func (m MonthlyFixes) Months() []string {
	months := make([]string, 0, len(m))
	for k := range m {
		months = append(months, k)
	}
	sort.Strings(months)
	return months
}

// Total is the number of fixed tickets across all months.
func (m MonthlyFixes) Total() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

// WriteMonthlyFixes writes the "Month,Fixed issues" table.
func WriteMonthlyFixes(w io.Writer, fixes MonthlyFixes) error {
	records := [][]string{{"Month", "Fixed issues"}}
	for _, month := range fixes.Months() {
		records = append(records, []string{month, strconv.Itoa(fixes[month])})
	}
	return csv.NewWriter(w).WriteAll(records)
}

// WriteMonthlyFixesFile writes <dir>/<project>_monthly_fixes.csv.
func WriteMonthlyFixesFile(dir, project string, fixes MonthlyFixes) (string, error) {
	path := filepath.Join(dir, project+"_monthly_fixes.csv")
	err := writeFile(path, func(w io.Writer) error {
		return WriteMonthlyFixes(w, fixes)
	})
	return path, err
}

// WriteSplitSummaryFile writes <dir>/<project>_walk_forward.csv.
func WriteSplitSummaryFile(dir, project string, steps []Step) (string, error) {
	path := filepath.Join(dir, project+"_walk_forward.csv")
	err := writeFile(path, func(w io.Writer) error {
		return csv.NewWriter(w).WriteAll(SplitSummaryRecords(project, steps))
	})
	return path, err
}
