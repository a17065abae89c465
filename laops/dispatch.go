package laops

import (
	"github.com/gomlx/linalg/backends"
)

// Kernel is the sealed interface over the supported kernel call shapes.
//
// It is implemented exactly by the six function types Kernel1x1, Kernel2x1,
// Kernel3x1, Kernel3x2, Kernel4x2 and Kernel4x3, which enumerate every
// (input-count, output-count) pair used by the operator family: unary ops,
// binary multiplies, macs, and their paired gradient kernels. There is no
// generic fallback: a kernel with any other arity has no type to be written
// in, so an unsupported combination is a compile-time error, never a runtime
// one.
//
// The dispatch method reshapes each tensor to a fixed rank -- inputRank+1 for
// inputs and outputRank+1 for outputs, the extra leading axis being the
// flattened batch -- and invokes the kernel function with exactly that
// positional argument list, passing the stream and the operator configuration
// through unchanged.
type Kernel interface {
	// NumInputs is the number of input tensors the kernel consumes.
	NumInputs() int
	// NumOutputs is the number of output tensors the kernel writes.
	NumOutputs() int

	// dispatch seals the interface: only the arity variants in this package
	// implement it.
	dispatch(inputs, outputs []*backends.Buffer, inputRank, outputRank int, stream backends.Stream, attrs any)
}

// Kernel1x1 is a kernel taking 1 input and writing 1 output.
type Kernel1x1 func(in0, out0 *backends.Buffer, stream backends.Stream, attrs any)

// Kernel2x1 is a kernel taking 2 inputs and writing 1 output.
type Kernel2x1 func(in0, in1, out0 *backends.Buffer, stream backends.Stream, attrs any)

// Kernel3x1 is a kernel taking 3 inputs and writing 1 output.
type Kernel3x1 func(in0, in1, in2, out0 *backends.Buffer, stream backends.Stream, attrs any)

// Kernel3x2 is a kernel taking 3 inputs and writing 2 outputs.
type Kernel3x2 func(in0, in1, in2, out0, out1 *backends.Buffer, stream backends.Stream, attrs any)

// Kernel4x2 is a kernel taking 4 inputs and writing 2 outputs.
type Kernel4x2 func(in0, in1, in2, in3, out0, out1 *backends.Buffer, stream backends.Stream, attrs any)

// Kernel4x3 is a kernel taking 4 inputs and writing 3 outputs.
type Kernel4x3 func(in0, in1, in2, in3, out0, out1, out2 *backends.Buffer, stream backends.Stream, attrs any)

// Compile-time check that every variant implements Kernel:
var (
	_ Kernel = Kernel1x1(nil)
	_ Kernel = Kernel2x1(nil)
	_ Kernel = Kernel3x1(nil)
	_ Kernel = Kernel3x2(nil)
	_ Kernel = Kernel4x2(nil)
	_ Kernel = Kernel4x3(nil)
)

func (k Kernel1x1) NumInputs() int  { return 1 }
func (k Kernel1x1) NumOutputs() int { return 1 }
func (k Kernel1x1) dispatch(inputs, outputs []*backends.Buffer, inputRank, outputRank int, stream backends.Stream, attrs any) {
	k(inputs[0].FlatToBatched(inputRank+1),
		outputs[0].FlatToBatched(outputRank+1), stream, attrs)
}

func (k Kernel2x1) NumInputs() int  { return 2 }
func (k Kernel2x1) NumOutputs() int { return 1 }
func (k Kernel2x1) dispatch(inputs, outputs []*backends.Buffer, inputRank, outputRank int, stream backends.Stream, attrs any) {
	k(inputs[0].FlatToBatched(inputRank+1),
		inputs[1].FlatToBatched(inputRank+1),
		outputs[0].FlatToBatched(outputRank+1), stream, attrs)
}

func (k Kernel3x1) NumInputs() int  { return 3 }
func (k Kernel3x1) NumOutputs() int { return 1 }
func (k Kernel3x1) dispatch(inputs, outputs []*backends.Buffer, inputRank, outputRank int, stream backends.Stream, attrs any) {
	k(inputs[0].FlatToBatched(inputRank+1),
		inputs[1].FlatToBatched(inputRank+1),
		inputs[2].FlatToBatched(inputRank+1),
		outputs[0].FlatToBatched(outputRank+1), stream, attrs)
}

func (k Kernel3x2) NumInputs() int  { return 3 }
func (k Kernel3x2) NumOutputs() int { return 2 }
func (k Kernel3x2) dispatch(inputs, outputs []*backends.Buffer, inputRank, outputRank int, stream backends.Stream, attrs any) {
	k(inputs[0].FlatToBatched(inputRank+1),
		inputs[1].FlatToBatched(inputRank+1),
		inputs[2].FlatToBatched(inputRank+1),
		outputs[0].FlatToBatched(outputRank+1),
		outputs[1].FlatToBatched(outputRank+1), stream, attrs)
}

func (k Kernel4x2) NumInputs() int  { return 4 }
func (k Kernel4x2) NumOutputs() int { return 2 }
func (k Kernel4x2) dispatch(inputs, outputs []*backends.Buffer, inputRank, outputRank int, stream backends.Stream, attrs any) {
	k(inputs[0].FlatToBatched(inputRank+1),
		inputs[1].FlatToBatched(inputRank+1),
		inputs[2].FlatToBatched(inputRank+1),
		inputs[3].FlatToBatched(inputRank+1),
		outputs[0].FlatToBatched(outputRank+1),
		outputs[1].FlatToBatched(outputRank+1), stream, attrs)
}

func (k Kernel4x3) NumInputs() int  { return 4 }
func (k Kernel4x3) NumOutputs() int { return 3 }
func (k Kernel4x3) dispatch(inputs, outputs []*backends.Buffer, inputRank, outputRank int, stream backends.Stream, attrs any) {
	k(inputs[0].FlatToBatched(inputRank+1),
		inputs[1].FlatToBatched(inputRank+1),
		inputs[2].FlatToBatched(inputRank+1),
		inputs[3].FlatToBatched(inputRank+1),
		outputs[0].FlatToBatched(outputRank+1),
		outputs[1].FlatToBatched(outputRank+1),
		outputs[2].FlatToBatched(outputRank+1), stream, attrs)
}
