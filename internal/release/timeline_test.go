package release

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/defectset/internal/errors"
	"github.com/rohankatakam/defectset/internal/models"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func scenarioTimeline(t *testing.T) *Timeline {
	t.Helper()
	tl, err := BuildTimeline([]models.Version{
		{Name: "v3", Date: date("2021-01-01")},
		{Name: "v1", Date: date("2020-01-01")},
		{Name: "v2", Date: date("2020-06-01")},
	})
	require.NoError(t, err)
	return tl
}

func TestBuildTimeline_DenseIncreasingIndices(t *testing.T) {
	tl := scenarioTimeline(t)

	releases := tl.Releases()
	require.Len(t, releases, 3)
	for i, r := range releases {
		assert.Equal(t, i+1, r.Index)
		if i > 0 {
			assert.True(t, r.Date.After(releases[i-1].Date), "dates must increase with index")
		}
	}
	assert.Equal(t, []string{"v1"}, releases[0].Names)
	assert.Equal(t, []string{"v3"}, releases[2].Names)
}

func TestBuildTimeline_SameDayNamesShareBucket(t *testing.T) {
	tl, err := BuildTimeline([]models.Version{
		{Name: "1.0.0", Date: date("2020-01-01")},
		{Name: "1.0.0-hotfix", Date: date("2020-01-01")},
		{Name: "1.1.0", Date: date("2020-02-01")},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, tl.Len())
	r, ok := tl.Release(1)
	require.True(t, ok)
	assert.Equal(t, []string{"1.0.0", "1.0.0-hotfix"}, r.Names)

	idx, ok := tl.IndexOf("1.0.0-hotfix")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = tl.IndexOf("missing")
	assert.False(t, ok)
}

func TestBuildTimeline_Empty(t *testing.T) {
	tl, err := BuildTimeline(nil)
	assert.Nil(t, tl)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrEmptyTimeline))
	assert.True(t, errors.IsFatal(err))
}

func TestTimelineLookups(t *testing.T) {
	tl := scenarioTimeline(t)

	tests := []struct {
		name        string
		date        string
		atOrAfter   int
		commitIndex int
	}{
		{"before first release", "2019-05-01", 1, 1},
		{"on first release day", "2020-01-01", 1, 2},
		{"between v1 and v2", "2020-02-01", 2, 2},
		{"on v2 day", "2020-06-01", 2, 3},
		{"between v2 and v3", "2020-07-01", 3, 3},
		{"after last release", "2022-03-01", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := date(tt.date)
			assert.Equal(t, tt.atOrAfter, tl.IndexAtOrAfter(d))
			assert.Equal(t, tt.atOrAfter, tl.IndexAtOrBefore(d))
			assert.Equal(t, tt.commitIndex, tl.CommitIndex(d))
		})
	}
}

func TestTimelineLookups_IgnoreTimeOfDay(t *testing.T) {
	tl := scenarioTimeline(t)

	late := time.Date(2020, 6, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 2, tl.IndexAtOrAfter(late))
}

func TestFirstHalfCeiling(t *testing.T) {
	tests := []struct {
		releases int
		want     int
	}{
		{1, 1},
		{2, 2},
		{3, 2},
		{10, 6},
		{15, 8},
	}

	for _, tt := range tests {
		versions := make([]models.Version, tt.releases)
		for i := range versions {
			versions[i] = models.Version{Name: "r", Date: date("2020-01-01").AddDate(0, i, 0)}
		}
		tl, err := BuildTimeline(versions)
		require.NoError(t, err)
		assert.Equal(t, tt.want, tl.FirstHalfCeiling(), "releases=%d", tt.releases)
	}
}
