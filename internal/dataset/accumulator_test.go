package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/defectset/internal/models"
	"github.com/rohankatakam/defectset/internal/ticket"
)

func modify(path string, changeSet int, edits ...models.Edit) models.FileChange {
	return models.FileChange{Path: path, Kind: models.ChangeModify, Edits: edits, ChangeSetSize: changeSet}
}

func insert(n int) models.Edit {
	return models.Edit{Kind: models.EditInsert, NewLines: n}
}

func TestEnsureRecord_Idempotent(t *testing.T) {
	a := NewAccumulator()

	assert.True(t, a.EnsureRecord(1, "Foo.java"))
	require.NoError(t, a.MergeCommitChange(1, modify("Foo.java", 2, insert(5)), nil, 10))
	before, _ := a.Get(1, "Foo.java")

	assert.False(t, a.EnsureRecord(1, "Foo.java"))
	after, ok := a.Get(1, "Foo.java")
	require.True(t, ok)

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, before, after)
}

func TestMergeCommitChange_Metrics(t *testing.T) {
	a := NewAccumulator()

	change := modify("Foo.java", 3,
		insert(4),
		models.Edit{Kind: models.EditDelete, OldLines: 2},
		models.Edit{Kind: models.EditReplace, OldLines: 3, NewLines: 5},
	)
	require.NoError(t, a.MergeCommitChange(2, change, nil, 10))
	require.NoError(t, a.MergeCommitChange(2, modify("Foo.java", 1, insert(7)), nil, 10))

	rec, ok := a.Get(2, "Foo.java")
	require.True(t, ok)
	assert.Equal(t, Record{
		LocTouched:      4 + 2 + 3 + 7,
		NumberRevisions: 2,
		LocAdded:        11,
		MaxLocAdded:     7,
		ChgSetSize:      4,
		MaxChgSet:       3,
	}, rec)
	assert.Equal(t, 2, rec.AvgChgSet())
	assert.Equal(t, 5, rec.AvgLocAdded())
}

func TestMergeCommitChange_CeilingStopsAccumulation(t *testing.T) {
	a := NewAccumulator()
	windows := []ticket.Window{{TicketID: 1, IV: 1, FV: 6}}

	require.NoError(t, a.MergeCommitChange(5, modify("Foo.java", 1, insert(10)), windows, 5))

	rec, ok := a.Get(5, "Foo.java")
	require.True(t, ok, "record exists past the ceiling")
	assert.Equal(t, Record{}, rec)
}

func TestMergeCommitChange_Monotonic(t *testing.T) {
	a := NewAccumulator()
	windows := []ticket.Window{{TicketID: 9, IV: 1, FV: 2}}

	require.NoError(t, a.MergeCommitChange(1, modify("A.java", 2, insert(3)), windows, 4))
	prev, _ := a.Get(1, "A.java")
	assert.True(t, prev.Buggy)
	assert.Equal(t, 1, prev.NumberBugFixes)

	for i := 0; i < 5; i++ {
		require.NoError(t, a.MergeCommitChange(1, modify("A.java", i, insert(i)), nil, 4))
		cur, _ := a.Get(1, "A.java")

		assert.True(t, cur.Buggy, "buggy never resets")
		assert.GreaterOrEqual(t, cur.LocTouched, prev.LocTouched)
		assert.GreaterOrEqual(t, cur.NumberRevisions, prev.NumberRevisions)
		assert.GreaterOrEqual(t, cur.NumberBugFixes, prev.NumberBugFixes)
		assert.GreaterOrEqual(t, cur.LocAdded, prev.LocAdded)
		assert.GreaterOrEqual(t, cur.MaxLocAdded, prev.MaxLocAdded)
		assert.GreaterOrEqual(t, cur.ChgSetSize, prev.ChgSetSize)
		assert.GreaterOrEqual(t, cur.MaxChgSet, prev.MaxChgSet)
		prev = cur
	}
}

func TestMergeCommitChange_CountsOneFixPerTicket(t *testing.T) {
	a := NewAccumulator()
	windows := []ticket.Window{
		{TicketID: 3, IV: 1, FV: 2},
		{TicketID: 8, IV: 1, FV: 3},
	}

	require.NoError(t, a.MergeCommitChange(1, modify("A.java", 1, insert(1)), windows, 4))
	rec, _ := a.Get(1, "A.java")
	assert.Equal(t, 2, rec.NumberBugFixes)
}

func TestScenario_WindowPropagation(t *testing.T) {
	a := NewAccumulator()
	windows := []ticket.Window{{TicketID: 5, IV: 2, FV: 4}}
	change := modify("Foo.java", 1, insert(2))

	require.NoError(t, a.MergeCommitChange(2, change, windows, 10))
	a.PropagateBuggy(windows, change, 10)

	for _, v := range []int{2, 3} {
		rec, ok := a.Get(v, "Foo.java")
		require.True(t, ok, "version %d", v)
		assert.True(t, rec.Buggy, "version %d", v)
	}
	_, ok := a.Get(4, "Foo.java")
	assert.False(t, ok, "fix version is outside the window")

	three, _ := a.Get(3, "Foo.java")
	assert.Zero(t, three.NumberRevisions)

	rows := a.Rows(10)
	require.Len(t, rows, 2)
	assert.Equal(t, "Yes", rows[0].Label())
	assert.Equal(t, "Yes", rows[1].Label())
}

func TestScenario_UnlinkedRevisions(t *testing.T) {
	a := NewAccumulator()
	for i := 0; i < 4; i++ {
		require.NoError(t, a.MergeCommitChange(1, modify("Bar.java", 1, insert(10)), nil, 5))
	}

	rows := a.Rows(5)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, 4, r.NumberRevisions)
	assert.Equal(t, 40, r.LocAdded)
	assert.Equal(t, 10, r.MaxLocAdded)
	assert.Equal(t, 10, r.AvgLocAdded())
	assert.Equal(t, "No", r.Label())
}

func TestPropagateBuggy(t *testing.T) {
	windows := []ticket.Window{{TicketID: 1, IV: 2, FV: 6}}

	tests := []struct {
		name     string
		kind     models.ChangeKind
		ceiling  int
		versions []int
	}{
		{"modify marks window", models.ChangeModify, 10, []int{2, 3, 4, 5}},
		{"delete marks window", models.ChangeDelete, 10, []int{2, 3, 4, 5}},
		{"ceiling truncates window", models.ChangeModify, 4, []int{2, 3}},
		{"ceiling below window", models.ChangeModify, 2, nil},
		{"add never propagates", models.ChangeAdd, 10, nil},
		{"rename never propagates", models.ChangeRename, 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAccumulator()
			a.PropagateBuggy(windows, models.FileChange{Path: "X.java", Kind: tt.kind}, tt.ceiling)

			var got []int
			for _, r := range a.Rows(100) {
				assert.True(t, r.Buggy)
				got = append(got, r.Version)
			}
			assert.Equal(t, tt.versions, got)
		})
	}
}

func TestPropagateBuggy_LabelsExistingRecords(t *testing.T) {
	a := NewAccumulator()
	a.Seed([]string{"X.java"}, 4)
	require.Equal(t, 3, a.Len())

	marked := a.PropagateBuggy([]ticket.Window{{TicketID: 1, IV: 1, FV: 3}},
		models.FileChange{Path: "X.java", Kind: models.ChangeModify}, 4)
	assert.Equal(t, 2, marked)

	one, _ := a.Get(1, "X.java")
	three, _ := a.Get(3, "X.java")
	assert.True(t, one.Buggy)
	assert.False(t, three.Buggy)
}

func TestRows_OrderAndCutoff(t *testing.T) {
	a := NewAccumulator()
	a.EnsureRecord(10, "a.java")
	a.EnsureRecord(2, "b.java")
	a.EnsureRecord(2, "a.java")
	a.EnsureRecord(11, "a.java")

	rows := a.Rows(10)
	require.Len(t, rows, 3)
	assert.Equal(t, Key{2, "a.java"}, Key{rows[0].Version, rows[0].Path})
	assert.Equal(t, Key{2, "b.java"}, Key{rows[1].Version, rows[1].Path})
	assert.Equal(t, Key{10, "a.java"}, Key{rows[2].Version, rows[2].Path})
}

func TestRow_Values(t *testing.T) {
	r := Row{
		Version: 3,
		Path:    "src/Foo.java",
		Record: Record{
			LocTouched:      12,
			NumberRevisions: 3,
			NumberBugFixes:  1,
			LocAdded:        9,
			MaxLocAdded:     5,
			ChgSetSize:      7,
			MaxChgSet:       4,
			Buggy:           true,
		},
	}

	assert.Len(t, r.Values(), len(Columns))
	assert.Equal(t,
		[]string{"3", "src/Foo.java", "12", "3", "1", "9", "5", "7", "4", "2", "3", "Yes"},
		r.Values())

	empty := Row{Version: 1, Path: "x"}
	assert.Equal(t, []string{"1", "x", "0", "0", "0", "0", "0", "0", "0", "0", "0", "No"}, empty.Values())
}
