package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/errors"
)

// CSVFormatter writes the dataset header followed by one line per row.
type CSVFormatter struct{}

func (f *CSVFormatter) Format(ds Dataset, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(dataset.Columns); err != nil {
		return err
	}
	for _, row := range ds.Rows {
		if err := cw.Write(row.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DatasetPath is where a project's dataset CSV lives under dir.
func DatasetPath(dir, project string) string {
	return filepath.Join(dir, project+"_dataset.csv")
}

// WriteDatasetFile encodes rows as <dir>/<project>_dataset.csv.
func WriteDatasetFile(dir, project string, rows []dataset.Row) (string, error) {
	path := DatasetPath(dir, project)
	err := writeFile(path, func(w io.Writer) error {
		return NewFormatter(FormatCSV).Format(Dataset{Relation: project, Rows: rows}, w)
	})
	return path, err
}

// ReadCSV decodes a dataset written by CSVFormatter. The header must match
// dataset.Columns; average columns are recomputed from the stored metrics.
func ReadCSV(r io.Reader) ([]dataset.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(dataset.Columns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.ValidationErrorf("dataset is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.SeverityMedium, "read dataset header")
	}
	for i, col := range dataset.Columns {
		if header[i] != col {
			return nil, errors.ValidationErrorf("unexpected column %d: got %q, want %q", i+1, header[i], col)
		}
	}

	var rows []dataset.Row
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.SeverityMedium, "read dataset row").
				WithContext("line", line)
		}
		row, err := parseRow(record)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.SeverityMedium, "parse dataset row").
				WithContext("line", line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadDatasetFile reads <dir>/<project>_dataset.csv.
func ReadDatasetFile(dir, project string) ([]dataset.Row, error) {
	path := DatasetPath(dir, project)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "open dataset %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseRow(record []string) (dataset.Row, error) {
	ints := make([]int, 0, 8)
	// version, then the seven stored metrics; averages are derived
	for _, i := range []int{0, 2, 3, 4, 5, 6, 7, 8} {
		n, err := strconv.Atoi(record[i])
		if err != nil {
			return dataset.Row{}, fmt.Errorf("column %q: %w", dataset.Columns[i], err)
		}
		ints = append(ints, n)
	}

	label := record[len(record)-1]
	if label != dataset.LabelBuggy && label != dataset.LabelClean {
		return dataset.Row{}, fmt.Errorf("invalid label %q", label)
	}

	return dataset.Row{
		Version: ints[0],
		Path:    record[1],
		Record: dataset.Record{
			LocTouched:      ints[1],
			NumberRevisions: ints[2],
			NumberBugFixes:  ints[3],
			LocAdded:        ints[4],
			MaxLocAdded:     ints[5],
			ChgSetSize:      ints[6],
			MaxChgSet:       ints[7],
			Buggy:           label == dataset.LabelBuggy,
		},
	}, nil
}

// writeFile creates path and its directory and hands the file to fn.
func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.FileSystemErrorf(err, "create output directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.FileSystemErrorf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		f.Close()
		return errors.FileSystemErrorf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.FileSystemErrorf(err, "close %s", path)
	}
	return nil
}
