package autolibra

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-Social-World/autolibra/annotation"
	"github.com/Open-Social-World/autolibra/dataset"
	"github.com/Open-Social-World/autolibra/media"
	"github.com/Open-Social-World/autolibra/metricset"
	"github.com/Open-Social-World/autolibra/trajectory"
)

func TestFacade_EndToEnd(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()
	clock := func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }

	ds, err := OpenDataset(filepath.Join(base, "data"), "demo",
		WithDescription("facade smoke test"), WithClock(clock))
	require.NoError(t, err)
	defer ds.Close()

	id, err := ds.CreateInstance(ctx, map[string]dataset.AgentMetadata{
		"A": {AgentType: "navigator"},
	}, nil)
	require.NoError(t, err)

	payload, err := media.NewStructured("click [1]")
	require.NoError(t, err)
	require.NoError(t, ds.AddDataPoint(ctx, id, "A", trajectory.AddPointRequest{
		Timestamp: clock(),
		Kind:      trajectory.Action,
		Payload:   payload,
		MediaType: media.TypeJSON,
	}))

	ann, err := OpenAnnotations(filepath.Join(base, "annotations"), "demo-project", WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, ann.AddAnnotator(ctx, annotation.Annotator{AnnotatorID: "e1", Name: "Expert"}))
	_, err = ann.AddAnnotation(ctx, annotation.AddAnnotationRequest{
		InstanceID: id, AgentID: "A", AnnotatorID: "e1",
	})
	require.NoError(t, err)

	ms, err := OpenMetricSet(filepath.Join(base, "metrics"), "demo-metrics", WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, ms.Add(ctx, metricset.Metric{Name: "efficiency", Explanation: "x"}))
	assert.Equal(t, []string{"efficiency"}, ms.List())

	list, err := ann.Annotations(ctx, id, "A")
	require.NoError(t, err)
	assert.Len(t, list.Annotations, 1)
}
