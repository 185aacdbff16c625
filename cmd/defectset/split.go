package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/output"
)

var (
	splitProject string
	splitLimit   int
	splitDir     string
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Write walk-forward training/testing ARFF files from a built dataset",
	Long: `Split reads <PROJECT>_dataset.csv and, for every i below the limit,
writes a training set with versions 1..i and a testing set with version i+1.

Examples:
  defectset split --project AVRO --limit 15
  defectset split --project BOOKKEEPER`,
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().StringVarP(&splitProject, "project", "p", "", "project key (required)")
	splitCmd.Flags().IntVarP(&splitLimit, "limit", "l", 0, "number of versions to walk (default: highest version in the dataset)")
	splitCmd.Flags().StringVarP(&splitDir, "output", "o", "", "dataset directory (overrides output.directory)")
	splitCmd.MarkFlagRequired("project")
}

func runSplit(cmd *cobra.Command, args []string) error {
	dir := cfg.Output.Directory
	if splitDir != "" {
		dir = splitDir
	}
	project := strings.ToUpper(splitProject)

	rows, err := output.ReadDatasetFile(dir, project)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.ValidationErrorf("dataset of %s has no rows", project)
	}

	limit := splitLimit
	if limit == 0 {
		for _, r := range rows {
			if r.Version > limit {
				limit = r.Version
			}
		}
	}

	steps, err := output.WalkForward(rows, limit)
	if err != nil {
		return err
	}

	paths, err := output.WriteSplitFiles(dir, project, steps)
	if err != nil {
		return err
	}
	summaryPath, err := output.WriteSplitSummaryFile(dir, project, steps)
	if err != nil {
		return err
	}

	logger.WithField("files", len(paths)).Debug("wrote walk-forward files")

	fmt.Println(output.RenderSplit(project, steps))
	fmt.Printf("\n%d ARFF files and %s written\n", len(paths), summaryPath)
	return nil
}
