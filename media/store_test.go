package media

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestStore_StructuredRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payload, err := NewStructured(map[string]any{"command": "move_to", "position": []float64{1, 2, 0}})
	require.NoError(t, err)

	ref, err := s.Put(ctx, payload, TypeJSON, "traj-1", testTime, "action")
	require.NoError(t, err)
	assert.Equal(t, TypeJSON, ref.MediaType)
	assert.Empty(t, ref.Shape)
	assert.FileExists(t, ref.Path)

	got, err := s.Get(ctx, ref)
	require.NoError(t, err)
	doc, ok := got.(Structured)
	require.True(t, ok)
	assert.Equal(t, string(payload.Doc), string(doc.Doc), "byte-for-byte round trip")
}

func TestStore_StructuredString(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payload, err := NewStructured("click [1713]")
	require.NoError(t, err)
	ref, err := s.Put(ctx, payload, TypeJSON, "traj-1", testTime, "action")
	require.NoError(t, err)

	got, err := s.Get(ctx, ref)
	require.NoError(t, err)
	var text string
	require.NoError(t, got.(Structured).Decode(&text))
	assert.Equal(t, "click [1713]", text)
}

func TestStore_ArrayRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	arr, err := NewUint8Array([]int64{2, 3, 1}, []byte{10, 20, 30, 40, 50, 60})
	require.NoError(t, err)

	ref, err := s.Put(ctx, arr, TypeImage, "traj-1", testTime, "observation")
	require.NoError(t, err)
	assert.Equal(t, TypeImage, ref.MediaType)
	assert.Equal(t, []int64{2, 3, 1}, ref.Shape)
	assert.Equal(t, Uint8, ref.DType)

	got, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.True(t, arr.Equal(got.(*Array)))
}

func TestStore_ArrayFilesAreUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	arr, err := NewFloat32Array([]int64{1}, []float32{1})
	require.NoError(t, err)

	ref1, err := s.Put(ctx, arr, TypeArray, "traj-1", testTime, "observation")
	require.NoError(t, err)
	ref2, err := s.Put(ctx, arr, TypeArray, "traj-1", testTime, "observation")
	require.NoError(t, err)
	assert.NotEqual(t, ref1.Path, ref2.Path)
}

func TestStore_KindMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	arr, err := NewFloat64Array([]int64{1}, []float64{1})
	require.NoError(t, err)
	_, err = s.Put(ctx, arr, TypeJSON, "traj-1", testTime, "action")
	assert.ErrorIs(t, err, ErrKindMismatch)

	doc, err := NewStructured(map[string]any{"a": 1})
	require.NoError(t, err)
	_, err = s.Put(ctx, doc, TypeImage, "traj-1", testTime, "observation")
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestStore_GetMissingArrayMeta(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	arr, err := NewFloat64Array([]int64{2}, []float64{1, 2})
	require.NoError(t, err)
	ref, err := s.Put(ctx, arr, TypeArray, "traj-1", testTime, "observation")
	require.NoError(t, err)

	noShape := ref
	noShape.Shape = nil
	_, err = s.Get(ctx, noShape)
	assert.ErrorIs(t, err, ErrMissingArrayMeta)

	noDType := ref
	noDType.DType = ""
	_, err = s.Get(ctx, noDType)
	assert.ErrorIs(t, err, ErrMissingArrayMeta)
}

func TestStore_GetAbsentFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	arr, err := NewFloat64Array([]int64{1}, []float64{1})
	require.NoError(t, err)
	ref, err := s.Put(ctx, arr, TypeArray, "traj-1", testTime, "observation")
	require.NoError(t, err)

	require.NoError(t, os.Remove(ref.Path))
	_, err = s.Get(ctx, ref)
	assert.ErrorIs(t, err, ErrPayloadNotFound)
}

func TestStore_GetCorruptArray(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	arr, err := NewInt64Array([]int64{2}, []int64{7, 8})
	require.NoError(t, err)
	ref, err := s.Put(ctx, arr, TypeArray, "traj-1", testTime, "observation")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(ref.Path, []byte("garbage"), 0o644))
	_, err = s.Get(ctx, ref)
	assert.ErrorIs(t, err, ErrCorruptPayload)
}

func TestStore_NoReadCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payload, err := NewStructured(map[string]any{"v": 1})
	require.NoError(t, err)
	ref, err := s.Put(ctx, payload, TypeJSON, "traj-1", testTime, "observation")
	require.NoError(t, err)

	// Rewrite the file out of band; a second Get must observe the change.
	require.NoError(t, os.WriteFile(ref.Path, []byte(`{"v":2}`), 0o644))
	got, err := s.Get(ctx, ref)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(got.(Structured).Doc, &doc))
	assert.Equal(t, float64(2), doc["v"])
}
