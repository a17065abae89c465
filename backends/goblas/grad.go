package goblas

import (
	"github.com/gomlx/exceptions"
	"golang.org/x/exp/constraints"

	"github.com/gomlx/linalg/backends"
	"github.com/gomlx/linalg/laops"
)

// gemmGrad writes the gradients of out = alpha*op(A)*op(B) with respect to A
// and B, given the output gradient g.
func (tb typedBlas[T]) gemmGrad(transA, transB bool, alpha T, g, a, b, dA, dB *backends.Buffer) {
	switch {
	case !transA && !transB:
		tb.gemmBatched(false, true, alpha, 0, g, b, dA)
		tb.gemmBatched(true, false, alpha, 0, a, g, dB)
	case !transA && transB:
		tb.gemmBatched(false, false, alpha, 0, g, b, dA)
		tb.gemmBatched(true, false, alpha, 0, g, a, dB)
	case transA && !transB:
		tb.gemmBatched(false, true, alpha, 0, b, g, dA)
		tb.gemmBatched(false, false, alpha, 0, a, g, dB)
	default:
		tb.gemmBatched(true, true, alpha, 0, b, g, dA)
		tb.gemmBatched(true, true, alpha, 0, g, a, dB)
	}
}

// GemmGrad is the gradient kernel of Gemm: inputs (dOut, A, B), outputs
// (dA, dB). attrs must be a *laops.MatrixMultParams. Use with laops.Kernel3x2.
func GemmGrad(g, a, b, dA, dB *backends.Buffer, _ backends.Stream, attrs any) {
	params := attrs.(*laops.MatrixMultParams)
	switch g.Flat.(type) {
	case []float64:
		f64.gemmGrad(params.TransposeA, params.TransposeB, params.Alpha, g, a, b, dA, dB)
	case []float32:
		f32.gemmGrad(params.TransposeA, params.TransposeB, float32(params.Alpha), g, a, b, dA, dB)
	default:
		exceptions.Panicf("goblas.GemmGrad: unsupported flat type %T", g.Flat)
	}
}

// scaleInto writes dst = factor*src elementwise.
func scaleInto[T constraints.Float](dst, src []T, factor T) {
	for i := range dst {
		dst[i] = factor * src[i]
	}
}

// GemmMacGrad is the gradient kernel of GemmMac: inputs (dOut, A, B, C),
// outputs (dA, dB, dC) with dC = beta*dOut. attrs must be a
// *laops.MatrixMacParams. Use with laops.Kernel4x3.
func GemmMacGrad(g, a, b, c, dA, dB, dC *backends.Buffer, _ backends.Stream, attrs any) {
	params := attrs.(*laops.MatrixMacParams)
	switch flat := g.Flat.(type) {
	case []float64:
		f64.gemmGrad(params.TransposeA, params.TransposeB, params.Alpha, g, a, b, dA, dB)
		scaleInto(dC.Flat.([]float64), flat, params.Beta)
	case []float32:
		f32.gemmGrad(params.TransposeA, params.TransposeB, float32(params.Alpha), g, a, b, dA, dB)
		scaleInto(dC.Flat.([]float32), flat, float32(params.Beta))
	default:
		exceptions.Panicf("goblas.GemmMacGrad: unsupported flat type %T", g.Flat)
	}
}

// lowerTriangleMask zeroes the strictly-upper entries of each batch matrix of
// the [batch, n, n] view: the triangular operand only stores (and only
// receives gradient on) its lower triangle.
func lowerTriangleMask[T constraints.Float](flat []T, batch, n int) {
	for i := 0; i < batch; i++ {
		matrix := flat[i*n*n : (i+1)*n*n]
		for row := 0; row < n-1; row++ {
			for col := row + 1; col < n; col++ {
				matrix[row*n+col] = 0
			}
		}
	}
}

// trmmGrad writes the gradients of the triangular multiply with respect to
// the triangular operand A and the general operand B.
func (tb typedBlas[T]) trmmGrad(rightside, transpose bool, alpha T, g, a, b, dA, dB *backends.Buffer) {
	switch {
	case !rightside && !transpose:
		// out = alpha*A*B.
		tb.gemmBatched(false, true, alpha, 0, g, b, dA)
		tb.gemmBatched(true, false, alpha, 0, a, g, dB)
	case !rightside && transpose:
		// out = alpha*A'*B.
		tb.gemmBatched(false, true, alpha, 0, b, g, dA)
		tb.gemmBatched(false, false, alpha, 0, a, g, dB)
	case rightside && !transpose:
		// out = alpha*B*A.
		tb.gemmBatched(true, false, alpha, 0, b, g, dA)
		tb.gemmBatched(false, true, alpha, 0, g, a, dB)
	default:
		// out = alpha*B*A'.
		tb.gemmBatched(true, false, alpha, 0, g, b, dA)
		tb.gemmBatched(false, false, alpha, 0, g, a, dB)
	}
	lowerTriangleMask(dA.Flat.([]T), dA.Shape.Dim(0), dA.Shape.Dim(1))
}

// TrmmGrad is the gradient kernel of Trmm: inputs (dOut, A, B, Out), outputs
// (dA, dB). The forward output is part of the fixed signature but is not
// needed by this backend's formulas. attrs must be a
// *laops.TriangularMultParams. Use with laops.Kernel4x2.
func TrmmGrad(g, a, b, out, dA, dB *backends.Buffer, _ backends.Stream, attrs any) {
	_ = out
	params := attrs.(*laops.TriangularMultParams)
	switch g.Flat.(type) {
	case []float64:
		f64.trmmGrad(params.RightSide, params.Transpose, params.Alpha, g, a, b, dA, dB)
	case []float32:
		f32.trmmGrad(params.RightSide, params.Transpose, float32(params.Alpha), g, a, b, dA, dB)
	default:
		exceptions.Panicf("goblas.TrmmGrad: unsupported flat type %T", g.Flat)
	}
}
