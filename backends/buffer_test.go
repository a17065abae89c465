package backends

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/linalg/types/shapes"
)

func TestNewBuffer(t *testing.T) {
	b := NewBuffer(shapes.Make(dtypes.Float32, 2, 3))
	require.Len(t, b.Flat.([]float32), 6)
	assert.Equal(t, dtypes.Float32, b.DType())
	assert.Equal(t, 6, b.Size())

	b = NewBuffer(shapes.Make(dtypes.Float64, 4))
	require.Len(t, b.Flat.([]float64), 4)

	// Only single and double precision floats are supported.
	require.Panics(t, func() { NewBuffer(shapes.Make(dtypes.Int32, 2)) })
	// Partially known shapes cannot be allocated.
	require.Panics(t, func() { NewBuffer(shapes.Make(dtypes.Float32, 2, shapes.UnknownDim)) })
}

func TestNewBufferFromFlat(t *testing.T) {
	flat := []float64{1, 2, 3, 4, 5, 6}
	b := NewBufferFromFlat(shapes.Make(dtypes.Float64, 2, 3), flat)
	assert.Equal(t, flat, b.Flat)

	require.Panics(t, func() { NewBufferFromFlat(shapes.Make(dtypes.Float64, 2, 2), flat) })
	require.Panics(t, func() { NewBufferFromFlat(shapes.Make(dtypes.Float32, 2, 3), flat) })
	require.Panics(t, func() { NewBufferFromFlat(shapes.Make(dtypes.Float64, 2, 3), []int32{1, 2, 3, 4, 5, 6}) })
}

func TestFlatToBatched(t *testing.T) {
	b := NewBuffer(shapes.Make(dtypes.Float32, 2, 3, 4, 5))

	// Normalizing to a batch of matrices: leading axes collapse.
	v := b.FlatToBatched(3)
	assert.True(t, v.Shape.Equal(shapes.Make(dtypes.Float32, 6, 4, 5)))

	// The view aliases the same flat data.
	v.Flat.([]float32)[0] = 7
	assert.Equal(t, float32(7), b.Flat.([]float32)[0])

	// A plain matrix gets a batch axis of 1.
	m := NewBuffer(shapes.Make(dtypes.Float32, 4, 5))
	assert.True(t, m.FlatToBatched(3).Shape.Equal(shapes.Make(dtypes.Float32, 1, 4, 5)))

	// Rank-1 view of a batched output.
	o := NewBuffer(shapes.Make(dtypes.Float32, 2, 3))
	assert.True(t, o.FlatToBatched(2).Shape.Equal(shapes.Make(dtypes.Float32, 2, 3)))
	assert.True(t, o.FlatToBatched(1).Shape.Equal(shapes.Make(dtypes.Float32, 6)))

	// Buffers with fewer axes than requested get leading 1s padded in,
	// so an already-reduced per-batch value still reshapes cleanly.
	assert.True(t, m.FlatToBatched(4).Shape.Equal(shapes.Make(dtypes.Float32, 1, 1, 4, 5)))
	g := NewBuffer(shapes.Make(dtypes.Float64, 3))
	assert.True(t, g.FlatToBatched(3).Shape.Equal(shapes.Make(dtypes.Float64, 1, 1, 3)))

	require.Panics(t, func() { m.FlatToBatched(0) })
}

func TestSimpleAllocator(t *testing.T) {
	alloc := SimpleAllocator()
	a := alloc.TempBuffer(dtypes.Float64, 8)
	require.Len(t, a.Flat.([]float64), 8)
	for _, v := range a.Flat.([]float64) {
		assert.Equal(t, 0.0, v)
	}
	// Buffers from separate calls are disjoint.
	b := alloc.TempBuffer(dtypes.Float64, 8)
	a.Flat.([]float64)[0] = 1
	assert.Equal(t, 0.0, b.Flat.([]float64)[0])
}
