package output

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/errors"
)

func sampleRows() []dataset.Row {
	return []dataset.Row{
		{Version: 1, Path: "src/A.java", Record: dataset.Record{LocTouched: 10, NumberRevisions: 2, LocAdded: 8, MaxLocAdded: 5, ChgSetSize: 6, MaxChgSet: 4, NumberBugFixes: 1, Buggy: true}},
		{Version: 1, Path: "src/B.java"},
		{Version: 2, Path: "src/A.java", Record: dataset.Record{LocTouched: 3, NumberRevisions: 1, LocAdded: 3, MaxLocAdded: 3, ChgSetSize: 1, MaxChgSet: 1}},
		{Version: 3, Path: "src/C.java", Record: dataset.Record{NumberRevisions: 1, ChgSetSize: 2, MaxChgSet: 2, Buggy: true}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{" ARFF ", FormatARFF, false},
		{"json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.True(t, stderrors.Is(err, errors.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatCSV).Format(Dataset{Relation: "AVRO", Rows: sampleRows()[:2]}, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Version Number,File Name,LOC_Touched,NumberRevisions,NumberBugFix,LOC_Added,MAX_LOC_Added,Chg_Set_Size,Max_Chg_Set,AVG_Chg_Set,Avg_LOC_Added,Buggy", lines[0])
	assert.Equal(t, "1,src/A.java,10,2,1,8,5,6,4,3,4,Yes", lines[1])
	assert.Equal(t, "1,src/B.java,0,0,0,0,0,0,0,0,0,No", lines[2])
}

func TestReadCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatCSV).Format(Dataset{Rows: sampleRows()}, &buf))

	rows, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)
}

func TestReadCSV_Errors(t *testing.T) {
	header := strings.Join(dataset.Columns, ",") + "\n"
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong header", strings.Replace(header, "Buggy", "Label", 1)},
		{"short row", header + "1,a.java,1\n"},
		{"bad number", header + "x,a.java,0,0,0,0,0,0,0,0,0,No\n"},
		{"bad label", header + "1,a.java,0,0,0,0,0,0,0,0,0,Maybe\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrValidation))
		})
	}
}

func TestDatasetFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := WriteDatasetFile(dir, "AVRO", sampleRows())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "AVRO_dataset.csv"), path)

	rows, err := ReadDatasetFile(dir, "AVRO")
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	_, err = ReadDatasetFile(dir, "MISSING")
	assert.True(t, stderrors.Is(err, errors.ErrFileSystem))
}

func TestARFFFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatARFF).Format(Dataset{Relation: "AVRO", Rows: sampleRows()[:2]}, &buf))

	want := `@relation AVRO

@attribute LOC_Touched real
@attribute NumberRevisions real
@attribute NumberBugFix real
@attribute LOC_Added real
@attribute MAX_LOC_Added real
@attribute Chg_Set_Size real
@attribute Max_Chg_Set real
@attribute AVG_Chg_Set real
@attribute Avg_LOC_Added real
@attribute Buggy {Yes, No}

@data
10,2,1,8,5,6,4,3,4,Yes
0,0,0,0,0,0,0,0,0,No
`
	assert.Equal(t, want, buf.String())
}

func TestRelationName(t *testing.T) {
	assert.Equal(t, "dataset", relationName(""))
	assert.Equal(t, "AVRO", relationName("AVRO"))
	assert.Equal(t, "'my project'", relationName("my project"))
}

func TestWalkForward(t *testing.T) {
	steps, err := WalkForward(sampleRows(), 3)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, 1, steps[0].TrainingLimit)
	assert.Equal(t, Partition{Elements: 2, Defective: 1}, steps[0].Training)
	assert.Equal(t, Partition{Elements: 1, Defective: 0}, steps[0].Testing)
	assert.InDelta(t, 2.0/3.0, steps[0].TrainingShare(), 1e-9)
	assert.InDelta(t, 2.0/3.0, steps[0].MajorityClassShare(), 1e-9)

	assert.Equal(t, Partition{Elements: 3, Defective: 1}, steps[1].Training)
	assert.Equal(t, Partition{Elements: 1, Defective: 1}, steps[1].Testing)
	assert.Len(t, steps[1].TestingRows, 1)
	assert.Equal(t, "src/C.java", steps[1].TestingRows[0].Path)

	_, err = WalkForward(sampleRows(), 1)
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, SplitStats{}, Summarize(nil))

	steps, err := WalkForward(sampleRows(), 3)
	require.NoError(t, err)
	stats := Summarize(steps)
	assert.Equal(t, 2, stats.Steps)
	assert.InDelta(t, (0.5+1.0/3.0)/2, stats.MeanTrainingDefective, 1e-9)
	assert.InDelta(t, 0.5, stats.MeanTestingDefective, 1e-9)

	single := Summarize(steps[:1])
	assert.Equal(t, 0.0, single.StdTestingDefective)
}

func TestWriteSplitFiles(t *testing.T) {
	dir := t.TempDir()
	steps, err := WalkForward(sampleRows(), 3)
	require.NoError(t, err)

	paths, err := WriteSplitFiles(dir, "AVRO", steps)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "AVRO_1_training.arff"),
		filepath.Join(dir, "AVRO_1_testing.arff"),
		filepath.Join(dir, "AVRO_2_training.arff"),
		filepath.Join(dir, "AVRO_2_testing.arff"),
	}, paths)

	data, err := os.ReadFile(paths[3])
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "@data\n0,1,0,0,0,2,2,2,0,Yes\n"))

	summary, err := WriteSplitSummaryFile(dir, "AVRO", steps)
	require.NoError(t, err)
	data, err = os.ReadFile(summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AVRO,1,0.6667,0.5000,0.0000,0.6667")
}

func TestMonthlyFixes(t *testing.T) {
	fixes := MonthlyFixes{}
	fixes.Touch(time.Date(2020, 3, 9, 0, 0, 0, 0, time.UTC))
	fixes.Add(time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC))
	fixes.Add(time.Date(2020, 1, 30, 0, 0, 0, 0, time.UTC))
	fixes.Touch(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, []string{"2020-01", "2020-03"}, fixes.Months())
	assert.Equal(t, 2, fixes.Total())

	var buf bytes.Buffer
	require.NoError(t, WriteMonthlyFixes(&buf, fixes))
	assert.Equal(t, "Month,Fixed issues\n2020-01,2\n2020-03,0\n", buf.String())
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{
		Project:     "AVRO",
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Releases:    12,
		Ceiling:     7,
		Rows:        40,
		Skipped:     map[string]int{"malformed_tickets": 2},
	}

	path, err := WriteManifest(dir, m)
	require.NoError(t, err)
	assert.Equal(t, ManifestPath(dir, "AVRO"), path)

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = ReadManifest(filepath.Join(dir, "missing.yaml"))
	assert.True(t, stderrors.Is(err, errors.ErrFileSystem))
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary([]SummaryRow{
		{Project: "AVRO", Releases: 30, Ceiling: 16, Tickets: 1200, Windows: 800, Rows: 12000, BuggyRows: 3000, Elapsed: 1500 * time.Millisecond},
		{Project: "BOOKKEEPER", Err: stderrors.New("boom")},
	})

	assert.Contains(t, out, "AVRO")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "3,000 (25.0%)")
	assert.Contains(t, out, "failed: boom")
}

func TestRenderSplit(t *testing.T) {
	steps, err := WalkForward(sampleRows(), 3)
	require.NoError(t, err)
	out := RenderSplit("AVRO", steps)
	assert.Contains(t, out, "AVRO walk-forward")
	assert.Contains(t, out, "66.7%")
}
