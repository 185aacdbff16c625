package cache

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m, err := Open(filepath.Join(t.TempDir(), "cache", "responses.db"), ttl, logger)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManager_SetGet(t *testing.T) {
	m := openTemp(t, time.Hour)

	_, ok := m.Get("jira", "AVRO/versions")
	assert.False(t, ok)

	require.NoError(t, m.Set("jira", "AVRO/versions", []byte(`{"values":[]}`)))

	body, ok := m.Get("jira", "AVRO/versions")
	require.True(t, ok)
	assert.Equal(t, `{"values":[]}`, string(body))

	_, ok = m.Get("github", "AVRO/versions")
	assert.False(t, ok, "buckets are separate")
}

func TestManager_Expiry(t *testing.T) {
	m := openTemp(t, time.Hour)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set("jira", "k", []byte("v")))

	now = now.Add(59 * time.Minute)
	_, ok := m.Get("jira", "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = m.Get("jira", "k")
	assert.False(t, ok)
}

func TestManager_Clear(t *testing.T) {
	m := openTemp(t, 0)
	require.NoError(t, m.Set("a", "k", []byte("1")))
	require.NoError(t, m.Set("b", "k", []byte("2")))

	require.NoError(t, m.Clear())

	_, ok := m.Get("a", "k")
	assert.False(t, ok)
	_, ok = m.Get("b", "k")
	assert.False(t, ok)
}

func TestManager_NilIsDisabled(t *testing.T) {
	var m *Manager

	assert.NoError(t, m.Set("a", "k", []byte("1")))
	_, ok := m.Get("a", "k")
	assert.False(t, ok)
	assert.NoError(t, m.Close())
}
