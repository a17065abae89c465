package backends

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gomlx/linalg/types/shapes"
)

// Buffer is the tensor view handed to executors and kernels: a shape plus a
// reference to the flat data.
//
// Flat is always a slice of the shape's Go element type -- []float32 or
// []float64 for this operator family. The flat data may be shared between
// views: FlatToBatched returns a new Buffer aliasing the same flat slice.
type Buffer struct {
	Shape shapes.Shape

	// Flat is the row-major data, len(Flat) == Shape.Size().
	Flat any
}

func shapeOf(dtype dtypes.DType, size int) shapes.Shape {
	return shapes.Make(dtype, size)
}

// NewBuffer allocates a zero-initialized buffer of the given shape. The shape
// must be fully defined and of a supported dtype (Float32 or Float64).
func NewBuffer(shape shapes.Shape) *Buffer {
	if !shape.IsFullyDefined() {
		exceptions.Panicf("backends.NewBuffer: shape %s is not fully defined", shape)
	}
	var flat any
	switch shape.DType {
	case dtypes.Float32:
		flat = make([]float32, shape.Size())
	case dtypes.Float64:
		flat = make([]float64, shape.Size())
	default:
		exceptions.Panicf("backends.NewBuffer: unsupported dtype in shape %s, only Float32 and Float64 are supported", shape)
	}
	return &Buffer{Shape: shape, Flat: flat}
}

// NewBufferFromFlat wraps an existing flat slice. len(flat) must match the
// shape size and the slice element type must match the shape dtype.
func NewBufferFromFlat(shape shapes.Shape, flat any) *Buffer {
	size := shape.Size()
	switch data := flat.(type) {
	case []float32:
		if shape.DType != dtypes.Float32 || len(data) != size {
			exceptions.Panicf("backends.NewBufferFromFlat: []float32 of len %d doesn't match shape %s", len(data), shape)
		}
	case []float64:
		if shape.DType != dtypes.Float64 || len(data) != size {
			exceptions.Panicf("backends.NewBufferFromFlat: []float64 of len %d doesn't match shape %s", len(data), shape)
		}
	default:
		exceptions.Panicf("backends.NewBufferFromFlat: unsupported flat type %T for shape %s", flat, shape)
	}
	return &Buffer{Shape: shape, Flat: flat}
}

// DType of the buffer's elements.
func (b *Buffer) DType() dtypes.DType { return b.Shape.DType }

// Size is the number of elements in the buffer.
func (b *Buffer) Size() int { return b.Shape.Size() }

// FlatToBatched returns a view of the buffer reshaped to exactly rank axes:
// the trailing rank-1 axes of the original shape are preserved and all
// leading axes are collapsed into axis 0, the flattened batch. A buffer with
// fewer than rank axes gets missing leading axes padded with 1, batch axis
// included -- a gradient that is already reduced, e.g. rank-1 (batch), still
// normalizes to the rank its kernel expects.
//
// The view aliases the receiver's flat data.
func (b *Buffer) FlatToBatched(rank int) *Buffer {
	if rank < 1 {
		exceptions.Panicf("Buffer.FlatToBatched(%d) of buffer with shape %s", rank, b.Shape)
	}
	r := b.Shape.Rank()
	kept := rank - 1
	dims := make([]int, rank)
	if r < kept {
		for i := range dims {
			dims[i] = 1
		}
		copy(dims[rank-r:], b.Shape.Dimensions)
	} else {
		batch := 1
		for _, dim := range b.Shape.Dimensions[:r-kept] {
			batch *= dim
		}
		dims[0] = batch
		copy(dims[1:], b.Shape.Dimensions[r-kept:])
	}
	return &Buffer{Shape: shapes.Make(b.Shape.DType, dims...), Flat: b.Flat}
}
