package laops

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/linalg/backends"
	"github.com/gomlx/linalg/types/shapes"
)

func execCtx() *backends.ExecContext {
	return &backends.ExecContext{Stream: nil, Scratch: backends.SimpleAllocator()}
}

// fillKernel writes a constant into every element of its single output.
func fillKernel(value float64) Kernel1x1 {
	return func(in0, out0 *backends.Buffer, _ backends.Stream, _ any) {
		for i, flat := 0, out0.Flat.([]float64); i < len(flat); i++ {
			flat[i] = value
		}
	}
}

func TestForward(t *testing.T) {
	in := backends.NewBuffer(shapes.Make(F64, 2, 3, 3))
	out := backends.NewBuffer(shapes.Make(F64, 2, 3, 3))

	// The kernel sees rank-normalized views with a flattened batch axis.
	var seenIn, seenOut shapes.Shape
	kernel := Kernel1x1(func(in0, out0 *backends.Buffer, _ backends.Stream, _ any) {
		seenIn = in0.Shape
		seenOut = out0.Shape
	})
	Forward(kernel, 2, 2, []*backends.Buffer{in}, []*backends.Buffer{out}, nil, execCtx())
	assert.True(t, seenIn.Equal(shapes.Make(F64, 2, 3, 3)))
	assert.True(t, seenOut.Equal(shapes.Make(F64, 2, 3, 3)))

	Forward(fillKernel(7), 2, 2, []*backends.Buffer{in}, []*backends.Buffer{out}, nil, execCtx())
	for _, v := range out.Flat.([]float64) {
		assert.Equal(t, 7.0, v)
	}

	// Attrs are passed through unchanged.
	params := NewMatrixMultParams()
	var seenAttrs any
	probe := Kernel1x1(func(in0, out0 *backends.Buffer, _ backends.Stream, attrs any) {
		seenAttrs = attrs
	})
	Forward(probe, 2, 2, []*backends.Buffer{in}, []*backends.Buffer{out}, params, execCtx())
	assert.Same(t, params, seenAttrs)

	// Count mismatches are fatal preconditions.
	require.Panics(t, func() {
		Forward(fillKernel(0), 2, 2, []*backends.Buffer{in, in}, []*backends.Buffer{out}, nil, execCtx())
	})
	require.Panics(t, func() {
		Forward(fillKernel(0), 2, 2, []*backends.Buffer{in}, []*backends.Buffer{out, out}, nil, execCtx())
	})

	// Element types other than Float32/Float64 are fatal.
	intOut := &backends.Buffer{Shape: shapes.Make(dtypes.Int32, 2), Flat: []int32{0, 0}}
	require.Panics(t, func() {
		Forward(fillKernel(0), 1, 1, []*backends.Buffer{in}, []*backends.Buffer{intOut}, nil, execCtx())
	})
}

func TestBackwardAccumulation(t *testing.T) {
	in := backends.NewBuffer(shapes.Make(F64, 2, 2))

	// ReqAddTo: a destination holding V must end up holding V+G.
	out := backends.NewBufferFromFlat(shapes.Make(F64, 2, 2), []float64{10, 20, 30, 40})
	Backward(fillKernel(3), 2, 2,
		[]*backends.Buffer{in}, []*backends.Buffer{out}, []Req{ReqAddTo}, nil, execCtx())
	assert.Equal(t, []float64{13, 23, 33, 43}, out.Flat.([]float64))

	// ReqWrite: V is discarded, the destination holds exactly G.
	out = backends.NewBufferFromFlat(shapes.Make(F64, 2, 2), []float64{10, 20, 30, 40})
	Backward(fillKernel(3), 2, 2,
		[]*backends.Buffer{in}, []*backends.Buffer{out}, []Req{ReqWrite}, nil, execCtx())
	assert.Equal(t, []float64{3, 3, 3, 3}, out.Flat.([]float64))
}

func TestBackwardMixedReqs(t *testing.T) {
	// A (3,2) gradient kernel with one output accumulating and one written in
	// place.
	kernel := Kernel3x2(func(in0, in1, in2, out0, out1 *backends.Buffer, _ backends.Stream, _ any) {
		for i, flat := 0, out0.Flat.([]float64); i < len(flat); i++ {
			flat[i] = 1
		}
		for i, flat := 0, out1.Flat.([]float64); i < len(flat); i++ {
			flat[i] = 2
		}
	})
	in := backends.NewBuffer(shapes.Make(F64, 2, 2))
	out0 := backends.NewBufferFromFlat(shapes.Make(F64, 2, 2), []float64{5, 5, 5, 5})
	out1 := backends.NewBufferFromFlat(shapes.Make(F64, 2, 2), []float64{5, 5, 5, 5})
	Backward(kernel, 2, 2,
		[]*backends.Buffer{in, in, in}, []*backends.Buffer{out0, out1},
		[]Req{ReqAddTo, ReqWrite}, nil, execCtx())
	assert.Equal(t, []float64{6, 6, 6, 6}, out0.Flat.([]float64))
	assert.Equal(t, []float64{2, 2, 2, 2}, out1.Flat.([]float64))
}

func TestBackwardPreconditions(t *testing.T) {
	in := backends.NewBuffer(shapes.Make(F64, 2, 2))
	out := backends.NewBuffer(shapes.Make(F64, 2, 2))

	// One accumulation mode per output.
	require.Panics(t, func() {
		Backward(fillKernel(0), 2, 2, []*backends.Buffer{in}, []*backends.Buffer{out}, nil, nil, execCtx())
	})

	// ReqAddTo without a scratch allocator is fatal.
	ctx := &backends.ExecContext{}
	require.Panics(t, func() {
		Backward(fillKernel(0), 2, 2, []*backends.Buffer{in}, []*backends.Buffer{out}, []Req{ReqAddTo}, nil, ctx)
	})

	// ReqWrite alone never touches the allocator.
	Backward(fillKernel(1), 2, 2, []*backends.Buffer{in}, []*backends.Buffer{out}, []Req{ReqWrite}, nil, ctx)
	assert.Equal(t, 1.0, out.Flat.([]float64)[0])
}

func TestKernelArities(t *testing.T) {
	// The sealed Kernel variants enumerate exactly the supported
	// (input-count, output-count) pairs; anything else has no type to be
	// written in and fails to compile.
	for _, tc := range []struct {
		kernel    Kernel
		ins, outs int
	}{
		{Kernel1x1(nil), 1, 1},
		{Kernel2x1(nil), 2, 1},
		{Kernel3x1(nil), 3, 1},
		{Kernel3x2(nil), 3, 2},
		{Kernel4x2(nil), 4, 2},
		{Kernel4x3(nil), 4, 3},
	} {
		assert.Equal(t, tc.ins, tc.kernel.NumInputs())
		assert.Equal(t, tc.outs, tc.kernel.NumOutputs())
	}
}

func TestReqString(t *testing.T) {
	assert.Equal(t, "ReqWrite", ReqWrite.String())
	assert.Equal(t, "ReqAddTo", ReqAddTo.String())
	assert.Equal(t, "Req(invalid)", Req(17).String())
}
