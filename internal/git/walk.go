package git

import (
	"context"
	"io"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/models"
)

// ForEachCommit calls fn for every commit reachable from any ref, oldest
// first by committer time. Each commit is diffed against its first parent;
// root commits are reported with HasParent false and no files. Commits whose
// objects cannot be read are logged and left out, see SkippedCommits.
func (r *Repository) ForEachCommit(ctx context.Context, fn func(models.Commit) error) error {
	r.skipped = nil

	commits, err := r.commits()
	if err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"dir":     r.dir,
		"commits": len(commits),
	}).Debug("walking repository history")

	for _, c := range commits {
		if err := ctx.Err(); err != nil {
			return err
		}

		commit, err := r.toCommit(ctx, c)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			r.logger.WithError(err).WithField("commit", c.Hash.String()).Warn("skipping unreadable commit")
			r.skipped = append(r.skipped, models.SkippedCommit{SHA: c.Hash.String(), Reason: err.Error()})
			continue
		}
		if err := fn(commit); err != nil {
			return err
		}
	}
	return nil
}

// SkippedCommits returns the commits the last ForEachCommit left out.
func (r *Repository) SkippedCommits() []models.SkippedCommit {
	out := make([]models.SkippedCommit, len(r.skipped))
	copy(out, r.skipped)
	return out
}

func (r *Repository) commits() ([]*object.Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, errors.SourceError(err, "resolve HEAD")
	}

	iter, err := r.repo.Log(&gogit.LogOptions{From: head.Hash(), All: true})
	if err != nil {
		return nil, errors.SourceError(err, "read log")
	}
	defer iter.Close()

	var commits []*object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		commits = append(commits, c)
		return nil
	})
	if err != nil && err != io.EOF {
		return nil, errors.SourceError(err, "read log")
	}

	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].Committer.When.Before(commits[j].Committer.When)
	})
	return commits, nil
}

func (r *Repository) toCommit(ctx context.Context, c *object.Commit) (models.Commit, error) {
	out := models.Commit{
		SHA:       c.Hash.String(),
		Timestamp: c.Committer.When,
		Message:   c.Message,
		HasParent: c.NumParents() > 0,
	}
	if !out.HasParent {
		return out, nil
	}

	parent, err := c.Parent(0)
	if err != nil {
		return out, errors.SourceErrorf(err, "parent of %s", out.SHA)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return out, errors.SourceErrorf(err, "tree of %s", parent.Hash)
	}
	tree, err := c.Tree()
	if err != nil {
		return out, errors.SourceErrorf(err, "tree of %s", out.SHA)
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return out, errors.SourceErrorf(err, "diff %s", out.SHA)
	}

	// the change-set size counts every file, not just the filtered ones
	changeSetSize := len(changes)

	for _, change := range changes {
		fc, ok, err := r.fileChange(change)
		if err != nil {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"commit": out.SHA,
				"path":   change.To.Name,
			}).Warn("skipping unreadable file change")
			continue
		}
		if !ok {
			continue
		}
		fc.ChangeSetSize = changeSetSize
		out.Files = append(out.Files, fc)
	}
	return out, nil
}

func (r *Repository) fileChange(change *object.Change) (models.FileChange, bool, error) {
	action, err := change.Action()
	if err != nil {
		return models.FileChange{}, false, err
	}

	fc := models.FileChange{Path: change.To.Name}
	switch action {
	case merkletrie.Insert:
		fc.Kind = models.ChangeAdd
	case merkletrie.Delete:
		fc.Kind = models.ChangeDelete
		fc.Path = change.From.Name
	default:
		fc.Kind = models.ChangeModify
		if change.From.Name != change.To.Name {
			fc.Kind = models.ChangeRename
			fc.OldPath = change.From.Name
		}
	}

	if !r.wanted(fc.Path) {
		return fc, false, nil
	}

	from, to, err := change.Files()
	if err != nil {
		return fc, false, err
	}
	oldText, err := contents(from)
	if err != nil {
		return fc, false, err
	}
	newText, err := contents(to)
	if err != nil {
		return fc, false, err
	}

	fc.Edits = lineEdits(oldText, newText)
	return fc, true, nil
}

// contents returns a file's text; missing and binary files read as empty.
func contents(f *object.File) (string, error) {
	if f == nil {
		return "", nil
	}
	if binary, err := f.IsBinary(); err != nil || binary {
		return "", err
	}
	return f.Contents()
}

// HeadFiles lists the files at HEAD that match the configured extension.
func (r *Repository) HeadFiles() ([]string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, errors.SourceError(err, "resolve HEAD")
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, errors.SourceError(err, "read HEAD commit")
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.SourceError(err, "read HEAD tree")
	}

	var paths []string
	err = tree.Files().ForEach(func(f *object.File) error {
		if r.wanted(f.Name) {
			paths = append(paths, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, errors.SourceError(err, "list HEAD files")
	}

	sort.Strings(paths)
	return paths, nil
}
