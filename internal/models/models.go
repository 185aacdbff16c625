package models

import (
	"time"
)

// Version represents a dated release as reported by the tracker
type Version struct {
	Name string    `json:"name" db:"name"`
	Date time.Time `json:"date" db:"release_date"`
}

// RawTicket represents a fixed ticket as reported by the tracker.
// Dates are kept as the tracker sent them; parsing happens in the ticket package.
type RawTicket struct {
	Key              string   `json:"key"`
	Created          string   `json:"created"`
	Resolved         string   `json:"resolved"`
	AffectedVersions []string `json:"affected_versions"`
}

// ChangeKind is the kind of change a commit made to a file
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "ADD"
	ChangeModify ChangeKind = "MODIFY"
	ChangeDelete ChangeKind = "DELETE"
	ChangeRename ChangeKind = "RENAME"
)

// EditKind classifies a contiguous line-range edit
type EditKind string

const (
	EditInsert  EditKind = "INSERT"
	EditDelete  EditKind = "DELETE"
	EditReplace EditKind = "REPLACE"
)

// Edit is a single line-range edit between the parent and the commit.
// OldLines counts lines on the parent side, NewLines on the commit side.
type Edit struct {
	Kind     EditKind `json:"kind"`
	OldLines int      `json:"old_lines"`
	NewLines int      `json:"new_lines"`
}

// FileChange represents one file touched by a commit
type FileChange struct {
	Path          string     `json:"path"`
	OldPath       string     `json:"old_path,omitempty"`
	Kind          ChangeKind `json:"kind"`
	Edits         []Edit     `json:"edits"`
	ChangeSetSize int        `json:"change_set_size"`
}

// SkippedCommit is a commit the source could not read.
type SkippedCommit struct {
	SHA    string `json:"sha"`
	Reason string `json:"reason"`
}

// Commit represents a git commit with its per-file diff statistics
type Commit struct {
	SHA       string       `json:"sha"`
	Timestamp time.Time    `json:"timestamp"`
	Message   string       `json:"message"`
	HasParent bool         `json:"has_parent"`
	Files     []FileChange `json:"files"`
}
