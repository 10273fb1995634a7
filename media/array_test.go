package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayCodec_RoundTrip(t *testing.T) {
	f64, err := NewFloat64Array([]int64{2, 2}, []float64{1.5, -2.25, 0, 1e300})
	require.NoError(t, err)
	f32, err := NewFloat32Array([]int64{3}, []float32{0.5, -1, 3.25})
	require.NoError(t, err)
	i64, err := NewInt64Array([]int64{2}, []int64{-9e15, 42})
	require.NoError(t, err)
	i32, err := NewInt32Array([]int64{1, 3}, []int32{-1, 0, 7})
	require.NoError(t, err)
	u8, err := NewUint8Array([]int64{2, 2, 1}, []byte{0, 127, 255, 3})
	require.NoError(t, err)

	for _, arr := range []*Array{f64, f32, i64, i32, u8} {
		raw, err := encodeArray(arr)
		require.NoError(t, err)

		got, err := decodeArray(raw)
		require.NoError(t, err)
		assert.True(t, arr.Equal(got), "dtype %s round trip", arr.DType)
	}
}

func TestArrayCodec_TypedAccessors(t *testing.T) {
	f64, err := NewFloat64Array([]int64{2}, []float64{1.5, 2.5})
	require.NoError(t, err)
	vals, err := f64.Float64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, vals)

	_, err = f64.Float32s()
	assert.Error(t, err)

	u8, err := NewUint8Array([]int64{3}, []byte{1, 2, 255})
	require.NoError(t, err)
	ints, err := u8.Int64s()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 255}, ints)
}

func TestArrayCodec_ShapeMismatch(t *testing.T) {
	_, err := NewFloat64Array([]int64{3}, []float64{1, 2})
	assert.Error(t, err)
}

func TestArrayCodec_Corruption(t *testing.T) {
	arr, err := NewInt32Array([]int64{4}, []int32{1, 2, 3, 4})
	require.NoError(t, err)
	raw, err := encodeArray(arr)
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		_, err := decodeArray(raw[:len(raw)/2])
		assert.ErrorIs(t, err, ErrCorruptPayload)
	})

	t.Run("bit flip", func(t *testing.T) {
		flipped := append([]byte(nil), raw...)
		flipped[arrayHeaderSize+8] ^= 0x01
		_, err := decodeArray(flipped)
		assert.ErrorIs(t, err, ErrCorruptPayload)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := decodeArray([]byte{1, 2, 3})
		assert.ErrorIs(t, err, ErrCorruptPayload)
	})
}
