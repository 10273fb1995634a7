package metricset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleMetric() Metric {
	return Metric{
		Name:          "redundant_actions",
		Explanation:   "The agent repeats actions that had no effect.",
		GoodBehaviors: []string{"retries with a changed approach"},
		BadBehaviors:  []string{"clicks the same dead link twice"},
	}
}

func openTestSet(t *testing.T, path string) *Set {
	t.Helper()
	s, err := Open(path, "webarena-metrics",
		WithInducedFrom("webarena-demo"),
		WithVersion("0.1"),
		WithClock(func() time.Time { return t0 }),
	)
	require.NoError(t, err)
	return s
}

func TestSet_AddAndGet(t *testing.T) {
	dir := t.TempDir()
	s := openTestSet(t, dir)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, sampleMetric()))
	assert.FileExists(t, filepath.Join(dir, "metrics", "redundant_actions.yaml"))

	got, err := s.Get(ctx, "redundant_actions")
	require.NoError(t, err)
	assert.Equal(t, sampleMetric(), got)

	_, err = s.Get(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrMetricNotFound)
}

func TestSet_DuplicateRejected(t *testing.T) {
	s := openTestSet(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, sampleMetric()))
	assert.ErrorIs(t, s.Add(ctx, sampleMetric()), ErrDuplicateMetric)

	// A duplicate inside one batch rejects the whole batch.
	err := s.Add(ctx,
		Metric{Name: "planning", Explanation: "x"},
		Metric{Name: "planning", Explanation: "y"},
	)
	assert.ErrorIs(t, err, ErrDuplicateMetric)
	_, err = s.Get(ctx, "planning")
	assert.ErrorIs(t, err, ErrMetricNotFound)

	assert.Equal(t, []string{"redundant_actions"}, s.List())
}

func TestSet_NameSanitized(t *testing.T) {
	dir := t.TempDir()
	s := openTestSet(t, dir)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, Metric{Name: "search/efficiency", Explanation: "x"}))
	assert.FileExists(t, filepath.Join(dir, "metrics", "search_efficiency.yaml"))

	got, err := s.Get(ctx, "search/efficiency")
	require.NoError(t, err)
	assert.Equal(t, "search_efficiency", got.Name)
}

func TestSet_HydratesOnReopen(t *testing.T) {
	dir := t.TempDir()
	s := openTestSet(t, dir)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx,
		sampleMetric(),
		Metric{Name: "task_completion", Explanation: "Did the agent finish?"},
	))

	s2, err := Open(dir, "different-name")
	require.NoError(t, err)
	meta := s2.Metadata()
	assert.Equal(t, "webarena-metrics", meta.Name, "persisted manifest wins over reopen args")
	assert.Equal(t, "webarena-demo", meta.InducedFrom)
	assert.Equal(t, []string{"redundant_actions", "task_completion"}, s2.List())
	assert.Len(t, s2.Metrics(), 2)

	got, err := s2.Get(context.Background(), "task_completion")
	require.NoError(t, err)
	assert.Equal(t, "Did the agent finish?", got.Explanation)
}

func TestSet_CreateRequiresName(t *testing.T) {
	_, err := Open(t.TempDir(), "")
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestSet_CorruptFiles(t *testing.T) {
	dir := t.TempDir()
	s := openTestSet(t, dir)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, sampleMetric()))

	metricPath := filepath.Join(dir, "metrics", "redundant_actions.yaml")
	require.NoError(t, os.WriteFile(metricPath, []byte(":\t["), 0o644))
	_, err := s.Get(ctx, "redundant_actions")
	assert.ErrorIs(t, err, ErrCorrupt)

	// Reopen hydrates from the manifest and hits the same corrupt file.
	_, err = Open(dir, "webarena-metrics")
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte(":\t["), 0o644))
	_, err = Open(dir, "webarena-metrics")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSet_MissingMemberFileSurfaces(t *testing.T) {
	dir := t.TempDir()
	s := openTestSet(t, dir)
	require.NoError(t, s.Add(context.Background(), sampleMetric()))
	require.NoError(t, os.Remove(filepath.Join(dir, "metrics", "redundant_actions.yaml")))

	_, err := Open(dir, "webarena-metrics")
	assert.ErrorIs(t, err, ErrMetricNotFound)
}
