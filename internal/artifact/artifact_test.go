package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawfinder-au/collector-cli/internal/model"
)

func TestWritePhaseCreatesFileAndMarker(t *testing.T) {
	t.Parallel()

	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	ts := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	path, err := dir.WritePhase(model.PhaseSearch, ts, []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, "01_search_20260301_103000.json", filepath.Base(path))
	assert.FileExists(t, path)
	assert.FileExists(t, path+doneSuffix)

	var got []string
	require.NoError(t, Load(path, &got))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestWritePhaseUnknownPhase(t *testing.T) {
	t.Parallel()

	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	_, err = dir.WritePhase(model.PhaseImport, time.Now(), nil)
	assert.Error(t, err)
}

func TestLatestCompletedPicksNewest(t *testing.T) {
	t.Parallel()

	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	older := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err = dir.WritePhase(model.PhaseSearch, older, []int{1})
	require.NoError(t, err)
	newest, err := dir.WritePhase(model.PhaseSearch, newer, []int{2})
	require.NoError(t, err)

	got, ok := dir.LatestCompleted(model.PhaseSearch)
	require.True(t, ok)
	assert.Equal(t, newest, got)
}

func TestLatestCompletedIgnoresUnmarkedFiles(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	dir, err := NewDir(base)
	require.NoError(t, err)

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	marked, err := dir.WritePhase(model.PhaseSearch, ts, []int{1})
	require.NoError(t, err)

	// A later data file without a marker simulates a crashed run.
	partial := filepath.Join(base, "01_search_20260401_090000.json")
	require.NoError(t, os.WriteFile(partial, []byte("[]"), 0o644))

	got, ok := dir.LatestCompleted(model.PhaseSearch)
	require.True(t, ok)
	assert.Equal(t, marked, got)
}

func TestLatestCompletedEmptyDir(t *testing.T) {
	t.Parallel()

	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	_, ok := dir.LatestCompleted(model.PhaseSearch)
	assert.False(t, ok)
}

func TestLatestCompletedSeparatesPhases(t *testing.T) {
	t.Parallel()

	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	ts := time.Now().UTC()
	_, err = dir.WritePhase(model.PhaseEnrich, ts, []int{1})
	require.NoError(t, err)

	_, ok := dir.LatestCompleted(model.PhaseSearch)
	assert.False(t, ok)
	_, ok = dir.LatestCompleted(model.PhaseEnrich)
	assert.True(t, ok)
}

func TestWriteAndLatestReport(t *testing.T) {
	t.Parallel()

	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	path, err := dir.WriteReport(time.Now().UTC(), map[string]int{"total": 3})
	require.NoError(t, err)

	got, ok := dir.LatestReport()
	require.True(t, ok)
	assert.Equal(t, path, got)

	var rep map[string]int
	require.NoError(t, Load(path, &rep))
	assert.Equal(t, 3, rep["total"])
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	var v any
	assert.Error(t, Load(filepath.Join(t.TempDir(), "nope.json"), &v))
}
