package output

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/defectset/internal/errors"
)

// Manifest describes one dataset build and the files it produced.
type Manifest struct {
	Project     string         `yaml:"project"`
	RunID       string         `yaml:"run_id"`
	GeneratedAt time.Time      `yaml:"generated_at"`
	Releases    int            `yaml:"releases"`
	Ceiling     int            `yaml:"ceiling"`
	Tickets     int            `yaml:"tickets"`
	Windows     int            `yaml:"windows"`
	Proportion  int            `yaml:"proportion_windows"`
	Dropped     int            `yaml:"dropped_tickets"`
	Rows        int            `yaml:"rows"`
	BuggyRows   int            `yaml:"buggy_rows"`
	Skipped     map[string]int `yaml:"skipped,omitempty"`
	Files       []string       `yaml:"files,omitempty"`
}

// ManifestPath is where a project's manifest lives under dir.
func ManifestPath(dir, project string) string {
	return filepath.Join(dir, project+"_manifest.yaml")
}

// WriteManifest encodes m as YAML into <dir>/<project>_manifest.yaml.
func WriteManifest(dir string, m *Manifest) (string, error) {
	path := ManifestPath(dir, m.Project)
	err := writeFile(path, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	})
	return path, err
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "read manifest %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.SeverityMedium, "parse manifest").
			WithContext("path", path)
	}
	return &m, nil
}
