// Package git walks a repository's history with go-git and reports, per
// commit, the files it touched and their line-level edits.
package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/models"
)

// Repository is an opened (possibly freshly cloned) repository.
type Repository struct {
	repo      *gogit.Repository
	dir       string
	ext       string
	removeDir bool
	logger    *logrus.Logger
	skipped   []models.SkippedCommit
}

// Options controls how a repository is opened.
type Options struct {
	// FileExtension restricts reported file changes, e.g. ".java". Empty keeps all.
	FileExtension string
	// KeepClone leaves a clone made by Clone on disk after Close.
	KeepClone bool
	Logger    *logrus.Logger
}

// Open opens an existing repository at path.
func Open(path string, opts Options) (*Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.SourceErrorf(err, "open repository %s", path)
	}
	return newRepository(repo, path, false, opts), nil
}

// Clone clones url into workDir/<repo name>, reusing an existing clone there.
func Clone(ctx context.Context, url, workDir string, opts Options) (*Repository, error) {
	_, name, err := ParseRepoURL(url)
	if err != nil {
		name = strings.TrimSuffix(filepath.Base(url), ".git")
	}
	dir := filepath.Join(workDir, name)

	if repo, err := gogit.PlainOpen(dir); err == nil {
		return newRepository(repo, dir, false, opts), nil
	}

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, errors.FileSystemErrorf(err, "create work dir %s", workDir)
	}

	logger := loggerOrDefault(opts.Logger)
	logger.WithFields(logrus.Fields{"url": url, "dir": dir}).Info("cloning repository")

	repo, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{URL: url})
	if err != nil {
		os.RemoveAll(dir)
		return nil, errors.SourceErrorf(err, "clone %s", url)
	}
	return newRepository(repo, dir, !opts.KeepClone, opts), nil
}

func newRepository(repo *gogit.Repository, dir string, removeDir bool, opts Options) *Repository {
	return &Repository{
		repo:      repo,
		dir:       dir,
		ext:       opts.FileExtension,
		removeDir: removeDir,
		logger:    loggerOrDefault(opts.Logger),
	}
}

func loggerOrDefault(l *logrus.Logger) *logrus.Logger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}

// Dir returns the working directory of the repository.
func (r *Repository) Dir() string {
	return r.dir
}

// Close removes a temporary clone.
func (r *Repository) Close() error {
	if !r.removeDir {
		return nil
	}
	return os.RemoveAll(r.dir)
}

func (r *Repository) wanted(path string) bool {
	return r.ext == "" || strings.HasSuffix(path, r.ext)
}

var (
	httpsRepoURL = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/]+)`)
	sshRepoURL   = regexp.MustCompile(`git@[^:]+:([^/]+)/([^/]+)`)
	gitRepoURL   = regexp.MustCompile(`git://[^/]+/([^/]+)/([^/]+)`)
)

// ParseRepoURL extracts owner and repository name from a remote URL.
// Supports https://host/owner/repo(.git), git@host:owner/repo(.git) and
// git://host/owner/repo(.git).
func ParseRepoURL(remoteURL string) (owner, repo string, err error) {
	remoteURL = strings.TrimSuffix(remoteURL, ".git")

	for _, re := range []*regexp.Regexp{httpsRepoURL, sshRepoURL, gitRepoURL} {
		if m := re.FindStringSubmatch(remoteURL); len(m) == 3 {
			return m[1], m[2], nil
		}
	}

	return "", "", fmt.Errorf("unrecognized git URL format: %s", remoteURL)
}
