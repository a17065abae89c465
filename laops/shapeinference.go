package laops

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gomlx/linalg/types/shapes"
)

// MultMacShape infers the output shape for the matrix-multiply (2 inputs) and
// multiply-accumulate (3 inputs) operators, writing results into the caller's
// slices through shapes.AssignCheck.
//
// Both primary input shapes must be fully known, of identical rank >= 2, for
// forward inference to run; otherwise the call returns (false, nil) so the
// shape-propagation driver can retry later. There is no backward inference
// for this operator.
//
// A mismatch on the leading (batch) axes is also reported as not-yet-inferable
// rather than a conflict; only the contraction-dimension check and the mac
// third-operand check are hard errors.
func MultMacShape(transposeA, transposeB bool, inputs, outputs []shapes.Shape) (done bool, err error) {
	if len(inputs) < 2 || len(inputs) > 3 {
		exceptions.Panicf("MultMacShape: expected 2 or 3 input shapes, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		exceptions.Panicf("MultMacShape: expected 1 output shape, got %d", len(outputs))
	}
	a, b := inputs[0], inputs[1]
	if a.Rank() < 2 || a.Rank() != b.Rank() || !a.IsFullyDefined() || !b.IsFullyDefined() {
		return false, nil
	}
	if a.DType != b.DType {
		return false, errors.Errorf("operands must have matching dtypes, got A=%s and B=%s", a, b)
	}
	ndim := a.Rank()
	oshape := make([]int, ndim)
	for axis := 0; axis < ndim-2; axis++ {
		// Both inputs must have the same shape except for the last two axes.
		if a.Dimensions[axis] != b.Dimensions[axis] {
			return false, nil
		}
		oshape[axis] = a.Dimensions[axis]
	}
	contractA := a.Dim(-1)
	if transposeA {
		contractA = a.Dim(-2)
	}
	contractB := b.Dim(-2)
	if transposeB {
		contractB = b.Dim(-1)
	}
	if contractA != contractB {
		return false, errors.Errorf(
			"incompatible matrix dimensions for multiplication: contraction extents %d (from A=%s) and %d (from B=%s)",
			contractA, a, contractB, b)
	}
	oshape[ndim-2] = a.Dim(-2)
	if transposeA {
		oshape[ndim-2] = a.Dim(-1)
	}
	oshape[ndim-1] = b.Dim(-1)
	if transposeB {
		oshape[ndim-1] = b.Dim(-2)
	}
	inferred := shapes.Make(a.DType, oshape...)
	if err = shapes.AssignCheck(&outputs[0], inferred); err != nil {
		return false, err
	}
	if len(inputs) > 2 {
		// The mac accumulator must match the output shape exactly.
		if err = shapes.AssignCheck(&inputs[2], inferred); err != nil {
			return false, errors.WithMessagef(err, "third (accumulator) operand must have the output shape %s", inferred)
		}
	}
	return true, nil
}

// TriangularMultShape infers shapes for the triangular matrix-multiply
// operator: A (input 0, triangular, square on its trailing two axes) and B
// (input 1, general), computing A*B, or B*A when params.RightSide is set.
//
// It is bidirectional: when both input shapes are fully known it runs forward
// inference; when they are not but the output shape is fully known, it
// reconstructs both input shapes from the output and the rightside/transpose
// flags. If neither direction has enough information it returns (false, nil).
func TriangularMultShape(params *TriangularMultParams, inputs, outputs []shapes.Shape) (done bool, err error) {
	if len(inputs) != 2 {
		exceptions.Panicf("TriangularMultShape: expected 2 input shapes, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		exceptions.Panicf("TriangularMultShape: expected 1 output shape, got %d", len(outputs))
	}
	a, b := inputs[0], inputs[1]
	if a.Rank() >= 2 && a.Rank() == b.Rank() && a.IsFullyDefined() && b.IsFullyDefined() {
		return triangularMultForward(params, inputs, outputs)
	}
	out := outputs[0]
	if out.Rank() >= 2 && out.IsFullyDefined() {
		return triangularMultBackward(params, inputs, out)
	}
	return false, nil
}

func triangularMultForward(params *TriangularMultParams, inputs, outputs []shapes.Shape) (done bool, err error) {
	a, b := inputs[0], inputs[1]
	if a.DType != b.DType {
		return false, errors.Errorf("operands must have matching dtypes, got A=%s and B=%s", a, b)
	}
	ndim := a.Rank()
	if a.Dim(-2) != a.Dim(-1) {
		return false, errors.Errorf("triangular operand must be a tensor of square matrices, got %s", a)
	}
	oshape := make([]int, ndim)
	for axis := 0; axis < ndim-2; axis++ {
		if a.Dimensions[axis] != b.Dimensions[axis] {
			return false, nil
		}
		oshape[axis] = a.Dimensions[axis]
	}
	if params.RightSide {
		// out = B * op(A).
		if a.Dim(-2) != b.Dim(-1) {
			return false, errors.Errorf(
				"incompatible matrix dimensions for multiplication: B=%s columns don't match triangular A=%s", b, a)
		}
		oshape[ndim-2] = b.Dim(-2)
		oshape[ndim-1] = a.Dim(-1)
		if params.Transpose {
			oshape[ndim-1] = a.Dim(-2)
		}
	} else {
		// out = op(A) * B.
		if b.Dim(-2) != a.Dim(-1) {
			return false, errors.Errorf(
				"incompatible matrix dimensions for multiplication: B=%s rows don't match triangular A=%s", b, a)
		}
		oshape[ndim-2] = a.Dim(-2)
		if params.Transpose {
			oshape[ndim-2] = a.Dim(-1)
		}
		oshape[ndim-1] = b.Dim(-1)
	}
	if err = shapes.AssignCheck(&outputs[0], shapes.Make(a.DType, oshape...)); err != nil {
		return false, err
	}
	return true, nil
}

func triangularMultBackward(params *TriangularMultParams, inputs []shapes.Shape, out shapes.Shape) (done bool, err error) {
	odim := out.Rank()
	ishape1 := make([]int, odim)
	ishape2 := make([]int, odim)
	for axis := 0; axis < odim-2; axis++ {
		ishape1[axis] = out.Dimensions[axis]
		ishape2[axis] = out.Dimensions[axis]
	}
	if params.RightSide {
		// out = B * op(A): A's extents follow the output columns, B keeps the
		// output rows.
		ishape2[odim-2] = out.Dim(-2)
		ishape1[odim-2] = out.Dim(-1)
		ishape1[odim-1] = out.Dim(-1)
		ishape2[odim-1] = out.Dim(-1)
	} else {
		// out = op(A) * B: A's extents follow the output rows, B keeps the
		// output columns.
		ishape2[odim-1] = out.Dim(-1)
		ishape1[odim-2] = out.Dim(-2)
		ishape1[odim-1] = out.Dim(-2)
		ishape2[odim-2] = out.Dim(-2)
	}
	if err = shapes.AssignCheck(&inputs[0], shapes.Make(out.DType, ishape1...)); err != nil {
		return false, err
	}
	if err = shapes.AssignCheck(&inputs[1], shapes.Make(out.DType, ishape2...)); err != nil {
		return false, err
	}
	return true, nil
}

// ReduceShape infers the output shape for operators reducing the trailing dim
// axes to a scalar per batch element. With input rank equal to dim the output
// is the single-element shape [1]. Forward-only: the reduction is lossy, so
// the input rank cannot be reconstructed from the output.
func ReduceShape(dim int, inputs, outputs []shapes.Shape) (done bool, err error) {
	if dim < 1 {
		exceptions.Panicf("ReduceShape: reduction arity must be >= 1, got %d", dim)
	}
	if len(inputs) != 1 {
		exceptions.Panicf("ReduceShape: expected 1 input shape, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		exceptions.Panicf("ReduceShape: expected 1 output shape, got %d", len(outputs))
	}
	in := inputs[0]
	ndim := in.Rank()
	if ndim < dim || !in.IsFullyDefined() {
		return false, nil
	}
	oshape := make([]int, max(1, ndim-dim))
	oshape[0] = 1
	copy(oshape, in.Dimensions[:ndim-dim])
	if err = shapes.AssignCheck(&outputs[0], shapes.Make(in.DType, oshape...)); err != nil {
		return false, err
	}
	return true, nil
}
