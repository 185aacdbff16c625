package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/output"
	"github.com/rohankatakam/defectset/internal/storage"
)

// FileSink writes datasets and run artifacts under Dir.
type FileSink struct {
	Dir      string
	ARFF     bool
	Manifest bool
	logger   *logrus.Logger
}

// NewFileSink creates a file sink
func NewFileSink(dir string, arff, manifest bool, logger *logrus.Logger) *FileSink {
	return &FileSink{Dir: dir, ARFF: arff, Manifest: manifest, logger: logger}
}

// WriteDataset writes <project>_dataset.csv and, when enabled, the same
// rows as ARFF.
func (s *FileSink) WriteDataset(ctx context.Context, project string, header []string, rows []dataset.Row) error {
	if len(header) != len(dataset.Columns) {
		return errors.InternalErrorf("dataset header has %d columns, want %d", len(header), len(dataset.Columns))
	}

	path, err := output.WriteDatasetFile(s.Dir, project, rows)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"path": path, "rows": len(rows)}).Info("wrote dataset")

	if !s.ARFF {
		return nil
	}
	_, err = output.WriteARFFFile(s.Dir, project, rows)
	return err
}

// RecordRun writes the monthly fix counts and the manifest.
func (s *FileSink) RecordRun(ctx context.Context, result *Result) error {
	fixesPath, err := output.WriteMonthlyFixesFile(s.Dir, result.Project, result.MonthlyFixes)
	if err != nil {
		return err
	}
	if !s.Manifest {
		return nil
	}

	m := result.Manifest()
	m.Files = []string{output.DatasetPath(s.Dir, result.Project), fixesPath}
	if s.ARFF {
		m.Files = append(m.Files, output.ARFFPath(s.Dir, result.Project))
	}
	path, err := output.WriteManifest(s.Dir, m)
	if err != nil {
		return err
	}
	s.logger.WithField("path", path).Debug("wrote manifest")
	return nil
}

// StoreSink persists runs into a storage.Store.
type StoreSink struct {
	store  storage.Store
	logger *logrus.Logger
}

// NewStoreSink creates a store-backed recorder
func NewStoreSink(store storage.Store, logger *logrus.Logger) *StoreSink {
	return &StoreSink{store: store, logger: logger}
}

// RecordRun saves the run, its timeline, its windows and its rows.
func (s *StoreSink) RecordRun(ctx context.Context, result *Result) error {
	run := &storage.Run{
		ID:        result.RunID,
		Project:   result.Project,
		StartedAt: result.StartedAt.UTC(),
		Releases:  result.Timeline.Len(),
		Ceiling:   result.Ceiling,
		Tickets:   result.Tickets.Tickets,
		Windows:   len(result.Windows),
		Rows:      len(result.Rows),
	}

	if err := s.store.SaveRun(ctx, run); err != nil {
		return errors.StorageError(err, "save run").WithContext("run_id", run.ID)
	}
	if err := s.store.SaveReleases(ctx, run.ID, result.Timeline.Releases()); err != nil {
		return errors.StorageError(err, "save releases").WithContext("run_id", run.ID)
	}
	if err := s.store.SaveWindows(ctx, run.ID, result.Windows); err != nil {
		return errors.StorageError(err, "save windows").WithContext("run_id", run.ID)
	}
	if err := s.store.SaveRows(ctx, run.ID, result.Rows); err != nil {
		return errors.StorageError(err, "save rows").WithContext("run_id", run.ID)
	}

	skipped := make([]storage.Skipped, 0, len(result.SkippedItems))
	for _, item := range result.SkippedItems {
		skipped = append(skipped, storage.Skipped{Item: item.Item, Reason: item.Reason, Message: item.Message})
	}
	if err := s.store.SaveSkipped(ctx, run.ID, skipped); err != nil {
		return errors.StorageError(err, "save skipped items").WithContext("run_id", run.ID)
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"project": run.Project,
		"rows":    run.Rows,
	}).Info("stored run")
	return nil
}
