package storage

import (
	"context"
	stderrors "errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/defectset/internal/config"
	"github.com/rohankatakam/defectset/internal/dataset"
	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/release"
	"github.com/rohankatakam/defectset/internal/ticket"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "runs.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Runs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetRun(ctx, "missing")
	assert.Equal(t, ErrNotFound, err)
	_, err = store.LatestRun(ctx, "AVRO")
	assert.Equal(t, ErrNotFound, err)

	first := &Run{ID: "run-1", Project: "AVRO", StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Releases: 10, Ceiling: 6}
	second := &Run{ID: "run-2", Project: "AVRO", StartedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Releases: 11, Ceiling: 6}
	require.NoError(t, store.SaveRun(ctx, first))
	require.NoError(t, store.SaveRun(ctx, second))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "AVRO", got.Project)
	assert.Equal(t, 10, got.Releases)

	latest, err := store.LatestRun(ctx, "AVRO")
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.ID)

	// saving again replaces the summary counts
	second.Rows = 42
	require.NoError(t, store.SaveRun(ctx, second))
	got, err = store.GetRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 42, got.Rows)
}

func TestSQLiteStore_ReleasesAndWindows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SaveRun(ctx, &Run{ID: "r", Project: "AVRO", StartedAt: time.Now()}))

	releases := []release.Release{
		{Index: 1, Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Names: []string{"1.0", "1.0-final"}},
		{Index: 2, Date: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), Names: []string{"1.1"}},
	}
	require.NoError(t, store.SaveReleases(ctx, "r", releases))
	require.NoError(t, store.SaveReleases(ctx, "r", nil))

	windows := []ticket.Window{{TicketID: 7, IV: 1, FV: 2}, {TicketID: 9, IV: 2, FV: 4}}
	require.NoError(t, store.SaveWindows(ctx, "r", windows))
	// idempotent on the primary key
	require.NoError(t, store.SaveWindows(ctx, "r", windows))

	var count int
	require.NoError(t, store.db.Get(&count, `SELECT COUNT(*) FROM ticket_windows WHERE run_id = ?`, "r"))
	assert.Equal(t, 2, count)

	var names string
	require.NoError(t, store.db.Get(&names, `SELECT names FROM releases WHERE run_id = ? AND idx = 1`, "r"))
	assert.Equal(t, "1.0,1.0-final", names)
}

func TestSQLiteStore_Rows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SaveRun(ctx, &Run{ID: "r", Project: "AVRO", StartedAt: time.Now()}))

	rows := []dataset.Row{
		{Version: 2, Path: "b.java", Record: dataset.Record{NumberRevisions: 1}},
		{Version: 1, Path: "z.java", Record: dataset.Record{LocTouched: 10, LocAdded: 10, MaxLocAdded: 10, ChgSetSize: 3, MaxChgSet: 3, NumberRevisions: 1, NumberBugFixes: 1, Buggy: true}},
		{Version: 1, Path: "a.java"},
	}
	require.NoError(t, store.SaveRows(ctx, "r", rows))

	got, err := store.GetRows(ctx, "r")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a.java", got[0].Path)
	assert.Equal(t, rows[1], got[1])
	assert.Equal(t, 2, got[2].Version)

	empty, err := store.GetRows(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_Skipped(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SaveRun(ctx, &Run{ID: "r", Project: "AVRO", StartedAt: time.Now()}))

	items := []Skipped{
		{Item: "AVRO-9", Reason: "malformed_tickets", Message: "first"},
		{Item: "AVRO-3", Reason: "duplicate_tickets"},
	}
	require.NoError(t, store.SaveSkipped(ctx, "r", items))
	require.NoError(t, store.SaveSkipped(ctx, "r", []Skipped{{Item: "AVRO-9", Reason: "malformed_tickets", Message: "second"}}))

	got, err := store.GetSkipped(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, []Skipped{
		{RunID: "r", Item: "AVRO-3", Reason: "duplicate_tickets"},
		{RunID: "r", Item: "AVRO-9", Reason: "malformed_tickets", Message: "second"},
	}, got)
}

func TestOpen(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := Open(config.StorageConfig{Type: "none"}, logger)
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = Open(config.StorageConfig{Type: "sqlite", LocalPath: filepath.Join(t.TempDir(), "runs.db")}, logger)
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())

	_, err = Open(config.StorageConfig{Type: "mongo"}, logger)
	assert.True(t, stderrors.Is(err, errors.ErrConfig))
}
