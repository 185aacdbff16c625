package output

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SummaryRow is one project line of the build summary.
type SummaryRow struct {
	Project    string
	Releases   int
	Ceiling    int
	Tickets    int
	Windows    int
	Proportion int
	Dropped    int
	Rows       int
	BuggyRows  int
	Elapsed    time.Duration
	Err        error
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	return tbl
}

func comma(n int) string {
	return humanize.Comma(int64(n))
}

// RenderSummary renders the per-project build summary.
func RenderSummary(rows []SummaryRow) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Project", "Releases", "Ceiling", "Tickets", "Windows", "Proportion", "Dropped", "Rows", "Buggy", "Elapsed"})

	var totalRows, totalBuggy int
	for _, r := range rows {
		if r.Err != nil {
			tbl.AppendRow(table.Row{r.Project, "-", "-", "-", "-", "-", "-", "-", "-", "failed: " + r.Err.Error()})
			continue
		}
		totalRows += r.Rows
		totalBuggy += r.BuggyRows
		tbl.AppendRow(table.Row{
			r.Project,
			comma(r.Releases),
			r.Ceiling,
			comma(r.Tickets),
			comma(r.Windows),
			comma(r.Proportion),
			comma(r.Dropped),
			comma(r.Rows),
			fmt.Sprintf("%s (%.1f%%)", comma(r.BuggyRows), percent(r.BuggyRows, r.Rows)),
			r.Elapsed.Round(time.Millisecond).String(),
		})
	}

	tbl.AppendFooter(table.Row{"Total", "", "", "", "", "", "", comma(totalRows), comma(totalBuggy), ""})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	return tbl.Render()
}

// RenderSplit renders walk-forward steps with their partition sizes.
func RenderSplit(project string, steps []Step) string {
	tbl := newTable()
	tbl.SetTitle(project + " walk-forward")
	tbl.AppendHeader(table.Row{"Train <=", "Training", "Defective", "Testing", "Defective", "% Training"})
	for _, s := range steps {
		tbl.AppendRow(table.Row{
			s.TrainingLimit,
			comma(s.Training.Elements),
			comma(s.Training.Defective),
			comma(s.Testing.Elements),
			comma(s.Testing.Defective),
			fmt.Sprintf("%.1f%%", s.TrainingShare()*100),
		})
	}

	stats := Summarize(steps)
	tbl.AppendFooter(table.Row{
		"Mean",
		"",
		fmt.Sprintf("%.1f%%", stats.MeanTrainingDefective*100),
		"",
		fmt.Sprintf("%.1f%%", stats.MeanTestingDefective*100),
		"",
	})
	return tbl.Render()
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
