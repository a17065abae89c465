// Package laops implements the operator core for batched linear-algebra
// operators: shape inference under batching, transposition and
// triangular-matrix conventions; an arity-indexed dispatcher binding
// fixed-arity kernels to tensor lists; and forward/backward executors with
// add-to gradient accumulation.
//
// The matrix math itself is opaque to this package: kernels are supplied by a
// backend (see backends/goblas for the reference CPU set) and invoked through
// the sealed Kernel arity variants.
//
// Shape-inference functions return a tri-state result (done bool, err error):
// (true, nil) all shapes filled in, (false, nil) not yet inferable -- the
// graph shape-propagation driver should retry once neighboring nodes provide
// more information -- and a non-nil error on a hard shape conflict, which
// aborts shape propagation. Precondition violations (wrong argument counts,
// unsupported dtypes) panic with a stack trace, see
// github.com/gomlx/exceptions.
package laops

// MatrixMultParams configures the batched matrix-multiply operator:
// out = alpha * op(A) * op(B), with op transposing the trailing two axes of
// its operand when the corresponding flag is set.
//
// Construct with NewMatrixMultParams to get the defaults, fields are read-only
// after construction.
type MatrixMultParams struct {
	// TransposeA multiplies with the transpose of the first operand.
	TransposeA bool
	// TransposeB multiplies with the transpose of the second operand.
	TransposeB bool
	// Alpha is the scalar factor applied to A*B. Defaults to 1.
	Alpha float64
}

// NewMatrixMultParams returns params with the default values:
// transpose_a=false, transpose_b=false, alpha=1.
func NewMatrixMultParams() *MatrixMultParams {
	return &MatrixMultParams{Alpha: 1.0}
}

// MatrixMacParams configures the batched matrix multiply-accumulate operator:
// out = alpha * op(A) * op(B) + beta * C.
type MatrixMacParams struct {
	// TransposeA multiplies with the transpose of the first operand.
	TransposeA bool
	// TransposeB multiplies with the transpose of the second operand.
	TransposeB bool
	// Alpha is the scalar factor applied to A*B. Defaults to 1.
	Alpha float64
	// Beta is the scalar factor applied to the accumulator C. Defaults to 1.
	Beta float64
}

// NewMatrixMacParams returns params with the default values:
// transpose_a=false, transpose_b=false, alpha=1, beta=1.
func NewMatrixMacParams() *MatrixMacParams {
	return &MatrixMacParams{Alpha: 1.0, Beta: 1.0}
}

// TriangularMultParams configures the batched triangular matrix-multiply
// operator: out = alpha * op(A) * B, or out = alpha * B * op(A) when
// RightSide is set. A, the first operand, is the triangular one and must be
// square on its trailing two axes.
type TriangularMultParams struct {
	// Transpose multiplies with the transpose of the triangular operand.
	Transpose bool
	// RightSide multiplies the triangular operand from the right.
	RightSide bool
	// Alpha is the scalar factor applied to the result. Defaults to 1.
	Alpha float64
}

// NewTriangularMultParams returns params with the default values:
// transpose=false, rightside=false, alpha=1.
func NewTriangularMultParams() *TriangularMultParams {
	return &TriangularMultParams{Alpha: 1.0}
}
