package git

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/rohankatakam/defectset/internal/models"
)

// lineEdits diffs two file contents line by line and groups the result into
// insert, delete and replace edits. A deletion immediately followed by an
// insertion is a single replace.
func lineEdits(from, to string) []models.Edit {
	dmp := diffmatchpatch.New()
	src, dst, _ := dmp.DiffLinesToRunes(from, to)
	diffs := dmp.DiffMainRunes(src, dst, false)

	var edits []models.Edit
	pendingDelete := 0

	flush := func() {
		if pendingDelete > 0 {
			edits = append(edits, models.Edit{Kind: models.EditDelete, OldLines: pendingDelete})
			pendingDelete = 0
		}
	}

	for _, d := range diffs {
		// each rune stands for one line
		n := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
		case diffmatchpatch.DiffDelete:
			pendingDelete += n
		case diffmatchpatch.DiffInsert:
			if pendingDelete > 0 {
				edits = append(edits, models.Edit{Kind: models.EditReplace, OldLines: pendingDelete, NewLines: n})
				pendingDelete = 0
			} else {
				edits = append(edits, models.Edit{Kind: models.EditInsert, NewLines: n})
			}
		}
	}
	flush()

	return edits
}
