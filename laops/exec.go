package laops

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"golang.org/x/exp/constraints"
	"k8s.io/klog/v2"

	"github.com/gomlx/linalg/backends"
)

// Req is the accumulation mode requested for one output of a backward call.
type Req int

const (
	// ReqWrite overwrites the destination buffer with the kernel's result.
	ReqWrite Req = iota
	// ReqAddTo sums the kernel's result into the destination buffer,
	// preserving the gradient already accumulated there from other paths.
	ReqAddTo
)

// String implements fmt.Stringer.
func (r Req) String() string {
	switch r {
	case ReqWrite:
		return "ReqWrite"
	case ReqAddTo:
		return "ReqAddTo"
	default:
		return "Req(invalid)"
	}
}

// checkedDType asserts the element type of the first output, the type the
// kernel computes in. Only single and double precision floats are supported
// by this operator family.
func checkedDType(outputs []*backends.Buffer) dtypes.DType {
	dtype := outputs[0].DType()
	if dtype != dtypes.Float32 && dtype != dtypes.Float64 {
		exceptions.Panicf("laops: unsupported dtype %s, only Float32 and Float64 are supported", dtype)
	}
	return dtype
}

func checkArity(name string, kernel Kernel, inputs, outputs []*backends.Buffer) {
	if len(inputs) != kernel.NumInputs() {
		exceptions.Panicf("laops.%s: kernel takes %d inputs, got %d", name, kernel.NumInputs(), len(inputs))
	}
	if len(outputs) != kernel.NumOutputs() {
		exceptions.Panicf("laops.%s: kernel writes %d outputs, got %d", name, kernel.NumOutputs(), len(outputs))
	}
}

// Forward runs the kernel once over the given tensors.
//
// inputRank and outputRank are the fixed matrix-batch ranks of the operator
// (2 for operators on matrices, 1 for reduced outputs); every tensor is
// reshaped to rank+1 with a flattened leading batch axis before the kernel is
// invoked. attrs is the operator configuration, passed through to the kernel
// unchanged.
//
// The call is synchronous and stateless; it writes through the output buffers
// and panics on precondition violation (argument counts, unsupported dtype).
func Forward(kernel Kernel, inputRank, outputRank int, inputs, outputs []*backends.Buffer, attrs any, ctx *backends.ExecContext) {
	checkArity("Forward", kernel, inputs, outputs)
	dtype := checkedDType(outputs)
	if klog.V(2).Enabled() {
		klog.Infof("laops.Forward: arity (%d,%d), ranks (%d,%d), dtype %s",
			kernel.NumInputs(), kernel.NumOutputs(), inputRank, outputRank, dtype)
	}
	kernel.dispatch(inputs, outputs, inputRank, outputRank, ctx.Stream, attrs)
}

// Backward runs the gradient kernel once, honoring the requested accumulation
// mode of each output.
//
// Outputs requested as ReqWrite are written in place. For each ReqAddTo
// output the kernel is redirected to a scratch buffer from ctx.Scratch --
// the destination already holds a gradient from another contributing path
// that must be preserved -- and after the kernel completes the scratch
// contents are added elementwise into the destination. The kernel itself
// needs no accumulation awareness. Scratch buffers are allocated fresh per
// call and dropped when the call returns.
func Backward(kernel Kernel, inputRank, outputRank int, inputs, outputs []*backends.Buffer, reqs []Req, attrs any, ctx *backends.ExecContext) {
	checkArity("Backward", kernel, inputs, outputs)
	if len(reqs) != len(outputs) {
		exceptions.Panicf("laops.Backward: %d accumulation modes for %d outputs", len(reqs), len(outputs))
	}
	dtype := checkedDType(outputs)
	if klog.V(2).Enabled() {
		klog.Infof("laops.Backward: arity (%d,%d), ranks (%d,%d), dtype %s, reqs %v",
			kernel.NumInputs(), kernel.NumOutputs(), inputRank, outputRank, dtype, reqs)
	}
	tspace := slices.Clone(outputs)
	for i, req := range reqs {
		if req != ReqAddTo {
			continue
		}
		if ctx.Scratch == nil {
			exceptions.Panicf("laops.Backward: output %d requests ReqAddTo but ctx.Scratch is nil", i)
		}
		scratch := ctx.Scratch.TempBuffer(dtype, outputs[i].Size())
		tspace[i] = &backends.Buffer{Shape: outputs[i].Shape, Flat: scratch.Flat}
	}
	kernel.dispatch(inputs, tspace, inputRank, outputRank, ctx.Stream, attrs)
	for i, req := range reqs {
		if req == ReqAddTo {
			addFlat(outputs[i], tspace[i])
		}
	}
}

func addFlat(dst, src *backends.Buffer) {
	switch flat := dst.Flat.(type) {
	case []float32:
		addTo(flat, src.Flat.([]float32))
	case []float64:
		addTo(flat, src.Flat.([]float64))
	default:
		exceptions.Panicf("laops: unsupported flat type %T", dst.Flat)
	}
}

func addTo[T constraints.Float](dst, src []T) {
	for i := range dst {
		dst[i] += src[i]
	}
}
