package output

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rohankatakam/defectset/internal/dataset"
)

// arffAttributes are the numeric dataset columns; identity columns are not
// part of the ARFF data section.
var arffAttributes = dataset.Columns[2 : len(dataset.Columns)-1]

// ARFFFormatter writes rows as an ARFF relation with nine real attributes
// and the nominal Buggy class.
type ARFFFormatter struct{}

func (f *ARFFFormatter) Format(ds Dataset, w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "@relation %s\n\n", relationName(ds.Relation))
	for _, attr := range arffAttributes {
		fmt.Fprintf(bw, "@attribute %s real\n", attr)
	}
	fmt.Fprintf(bw, "@attribute Buggy {%s, %s}\n\n", dataset.LabelBuggy, dataset.LabelClean)
	fmt.Fprintln(bw, "@data")

	for _, row := range ds.Rows {
		values := row.Values()
		fmt.Fprintln(bw, strings.Join(values[2:], ","))
	}
	return bw.Flush()
}

func relationName(s string) string {
	if s == "" {
		return "dataset"
	}
	if strings.ContainsAny(s, " \t,{}%'\"") {
		return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
	}
	return s
}

// ARFFPath is where a project's full ARFF dataset lives under dir.
func ARFFPath(dir, project string) string {
	return filepath.Join(dir, project+"_dataset.arff")
}

// WriteARFFFile encodes rows as <dir>/<project>_dataset.arff.
func WriteARFFFile(dir, project string, rows []dataset.Row) (string, error) {
	path := ARFFPath(dir, project)
	err := writeFile(path, func(w io.Writer) error {
		return NewFormatter(FormatARFF).Format(Dataset{Relation: project, Rows: rows}, w)
	})
	return path, err
}
