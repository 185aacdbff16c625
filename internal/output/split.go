package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/errors"
)

// Partition counts the rows of one side of a split.
type Partition struct {
	Elements  int `json:"elements" yaml:"elements"`
	Defective int `json:"defective" yaml:"defective"`
}

// DefectRatio is Defective/Elements, 0 for an empty partition.
func (p Partition) DefectRatio() float64 {
	if p.Elements == 0 {
		return 0
	}
	return float64(p.Defective) / float64(p.Elements)
}

func (p *Partition) add(row dataset.Row) {
	p.Elements++
	if row.Buggy {
		p.Defective++
	}
}

// Step is one walk-forward iteration: train on versions 1..TrainingLimit,
// test on version TrainingLimit+1.
type Step struct {
	TrainingLimit int           `json:"training_limit" yaml:"training_limit"`
	Training      Partition     `json:"training" yaml:"training"`
	Testing       Partition     `json:"testing" yaml:"testing"`
	TrainingRows  []dataset.Row `json:"-" yaml:"-"`
	TestingRows   []dataset.Row `json:"-" yaml:"-"`
}

// TrainingShare is the fraction of the step's rows used for training.
func (s Step) TrainingShare() float64 {
	total := s.Training.Elements + s.Testing.Elements
	if total == 0 {
		return 0
	}
	return float64(s.Training.Elements) / float64(total)
}

// MajorityClassShare is the fraction of clean rows across both partitions.
func (s Step) MajorityClassShare() float64 {
	total := s.Training.Elements + s.Testing.Elements
	if total == 0 {
		return 0
	}
	return 1 - float64(s.Training.Defective+s.Testing.Defective)/float64(total)
}

// WalkForward builds the steps i = 1..limit-1 over rows.
func WalkForward(rows []dataset.Row, limit int) ([]Step, error) {
	if limit < 2 {
		return nil, errors.ValidationErrorf("walk-forward limit must be at least 2, got %d", limit)
	}

	steps := make([]Step, 0, limit-1)
	for i := 1; i < limit; i++ {
		step := Step{TrainingLimit: i}
		for _, row := range rows {
			switch {
			case row.Version <= i:
				step.Training.add(row)
				step.TrainingRows = append(step.TrainingRows, row)
			case row.Version == i+1:
				step.Testing.add(row)
				step.TestingRows = append(step.TestingRows, row)
			}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// SplitStats summarises the defect ratios of a walk-forward run.
type SplitStats struct {
	Steps                 int     `json:"steps" yaml:"steps"`
	MeanTrainingDefective float64 `json:"mean_training_defective" yaml:"mean_training_defective"`
	MeanTestingDefective  float64 `json:"mean_testing_defective" yaml:"mean_testing_defective"`
	StdTestingDefective   float64 `json:"std_testing_defective" yaml:"std_testing_defective"`
}

// Summarize computes the mean and spread of the per-step defect ratios.
func Summarize(steps []Step) SplitStats {
	out := SplitStats{Steps: len(steps)}
	if len(steps) == 0 {
		return out
	}

	training := make([]float64, len(steps))
	testing := make([]float64, len(steps))
	for i, s := range steps {
		training[i] = s.Training.DefectRatio()
		testing[i] = s.Testing.DefectRatio()
	}

	out.MeanTrainingDefective = stat.Mean(training, nil)
	out.MeanTestingDefective, out.StdTestingDefective = stat.MeanStdDev(testing, nil)
	if len(steps) == 1 {
		out.StdTestingDefective = 0
	}
	return out
}

// WriteSplitFiles writes <project>_<i>_training.arff and
// <project>_<i>_testing.arff for every step and returns the written paths.
func WriteSplitFiles(dir, project string, steps []Step) ([]string, error) {
	arff := NewFormatter(FormatARFF)
	var paths []string
	for _, s := range steps {
		sides := []struct {
			suffix string
			rows   []dataset.Row
		}{
			{"training", s.TrainingRows},
			{"testing", s.TestingRows},
		}
		for _, side := range sides {
			path := filepath.Join(dir, fmt.Sprintf("%s_%d_%s.arff", project, s.TrainingLimit, side.suffix))
			rows := side.rows
			err := writeFile(path, func(w io.Writer) error {
				return arff.Format(Dataset{Relation: project, Rows: rows}, w)
			})
			if err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// splitColumns head the per-step summary CSV.
var splitColumns = []string{
	"Dataset", "# Training", "% Training", "% Defect Training", "% Defect Testing", "% Majority Class",
}

// SplitSummaryRecords renders steps as CSV records, header first.
func SplitSummaryRecords(project string, steps []Step) [][]string {
	records := [][]string{splitColumns}
	for _, s := range steps {
		records = append(records, []string{
			project,
			strconv.Itoa(s.TrainingLimit),
			formatRatio(s.TrainingShare()),
			formatRatio(s.Training.DefectRatio()),
			formatRatio(s.Testing.DefectRatio()),
			formatRatio(s.MajorityClassShare()),
		})
	}
	return records
}

func formatRatio(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
