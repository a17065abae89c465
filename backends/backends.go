// Package backends defines the execution-side contracts of the linalg
// operator core: the tensor view (Buffer) handed to kernels, the opaque
// compute Stream kernels enqueue their work on, and the scratch-space
// Allocator used by the backward executor.
//
// The core itself is backend-agnostic: it never inspects the Stream and never
// performs numeric work. A concrete backend supplies kernels (see the laops
// package for their signatures) plus whatever Stream implementation its
// device needs. The goblas sub-package is the reference CPU backend.
//
// To simplify error handling, precondition violations panic with a stack
// trace. See package github.com/gomlx/exceptions.
package backends

import (
	"github.com/gomlx/gopjrt/dtypes"
)

// Stream represents the backend's execution queue. The operator core never
// inspects it: it is handed unchanged to kernels, which enqueue (or directly
// perform) their work on it. Ordering of work enqueued on one stream is the
// execution engine's responsibility.
//
// A CPU backend that executes synchronously may simply pass nil.
type Stream any

// Allocator hands out request-scoped scratch buffers.
//
// The backward executor uses it for add-to accumulation: it allocates a fresh
// buffer per redirected output, never reuses it across calls, and drops all
// references when the call returns. Implementations must support concurrent
// independent calls allocating disjoint regions (call-reentrant); they need
// no free operation.
type Allocator interface {
	// TempBuffer returns a zero-initialized scratch buffer with size elements
	// of the given dtype.
	TempBuffer(dtype dtypes.DType, size int) *Buffer
}

// ExecContext carries the external resources a single forward or backward
// call touches: the compute stream and the scratch allocator. It holds no
// state of its own and may be shared across concurrent calls.
type ExecContext struct {
	Stream  Stream
	Scratch Allocator
}

// simpleAllocator allocates fresh slices straight from the Go heap.
type simpleAllocator struct{}

// SimpleAllocator returns an Allocator backed directly by the Go heap: every
// TempBuffer call allocates a fresh, garbage-collected buffer. Trivially
// call-reentrant.
func SimpleAllocator() Allocator {
	return simpleAllocator{}
}

func (simpleAllocator) TempBuffer(dtype dtypes.DType, size int) *Buffer {
	return NewBuffer(shapeOf(dtype, size))
}
