package dataset

import "strconv"

// Columns is the dataset header. Downstream tools depend on this order.
var Columns = []string{
	"Version Number",
	"File Name",
	"LOC_Touched",
	"NumberRevisions",
	"NumberBugFix",
	"LOC_Added",
	"MAX_LOC_Added",
	"Chg_Set_Size",
	"Max_Chg_Set",
	"AVG_Chg_Set",
	"Avg_LOC_Added",
	"Buggy",
}

// Label values of the Buggy column.
const (
	LabelBuggy = "Yes"
	LabelClean = "No"
)

// Row is one exported dataset line.
type Row struct {
	Version int
	Path    string
	Record
}

// Label returns "Yes" for buggy rows and "No" otherwise.
func (r Row) Label() string {
	if r.Buggy {
		return LabelBuggy
	}
	return LabelClean
}

// Metrics returns the nine numeric feature columns in header order.
func (r Row) Metrics() []int {
	return []int{
		r.LocTouched,
		r.NumberRevisions,
		r.NumberBugFixes,
		r.LocAdded,
		r.MaxLocAdded,
		r.ChgSetSize,
		r.MaxChgSet,
		r.AvgChgSet(),
		r.AvgLocAdded(),
	}
}

// Values renders the row in Columns order.
func (r Row) Values() []string {
	out := make([]string, 0, len(Columns))
	out = append(out, strconv.Itoa(r.Version), r.Path)
	for _, m := range r.Metrics() {
		out = append(out, strconv.Itoa(m))
	}
	return append(out, r.Label())
}
