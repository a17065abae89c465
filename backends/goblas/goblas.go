// Package goblas is the reference CPU kernel set for the laops operator
// core, implemented on gonum's native BLAS (row-major Dgemm/Sgemm and
// Dtrmm/Strmm, plus hand-rolled diagonal reductions).
//
// Every kernel receives rank-normalized views from the laops dispatcher --
// inputs as [batch, rows, cols], batched outputs likewise -- loops over the
// flattened batch axis and dispatches on the flat slice element type. The
// stream argument is ignored: this backend executes synchronously on the
// calling goroutine. Triangular operands use the lower triangle, non-unit
// diagonal.
package goblas

import (
	"github.com/gomlx/exceptions"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/blas"
	blasimpl "gonum.org/v1/gonum/blas/gonum"

	"github.com/gomlx/linalg/backends"
	"github.com/gomlx/linalg/laops"
)

var impl blasimpl.Implementation

// typedBlas groups the level-3 routines of one float width.
type typedBlas[T constraints.Float] struct {
	gemm func(tA, tB blas.Transpose, m, n, k int, alpha T, a []T, lda int, b []T, ldb int, beta T, c []T, ldc int)
	trmm func(s blas.Side, ul blas.Uplo, tA blas.Transpose, d blas.Diag, m, n int, alpha T, a []T, lda int, b []T, ldb int)
}

var (
	f64 = typedBlas[float64]{gemm: impl.Dgemm, trmm: impl.Dtrmm}
	f32 = typedBlas[float32]{gemm: impl.Sgemm, trmm: impl.Strmm}
)

func transOf(transpose bool) blas.Transpose {
	if transpose {
		return blas.Trans
	}
	return blas.NoTrans
}

// matrixDims returns the per-batch stride and the stored (rows, cols) of a
// [batch, rows, cols] view.
func matrixDims(buf *backends.Buffer) (stride, rows, cols int) {
	rows, cols = buf.Shape.Dim(1), buf.Shape.Dim(2)
	return rows * cols, rows, cols
}

// gemmBatched computes out = alpha*op(x)*op(y) + beta*out for each batch
// element of the [batch, rows, cols] views.
func (tb typedBlas[T]) gemmBatched(transX, transY bool, alpha, beta T, x, y, out *backends.Buffer) {
	fx, fy, fo := x.Flat.([]T), y.Flat.([]T), out.Flat.([]T)
	batch := out.Shape.Dim(0)
	oStride, m, n := matrixDims(out)
	xStride, xRows, xCols := matrixDims(x)
	yStride, _, yCols := matrixDims(y)
	k := xCols
	if transX {
		k = xRows
	}
	for i := 0; i < batch; i++ {
		tb.gemm(transOf(transX), transOf(transY), m, n, k, alpha,
			fx[i*xStride:(i+1)*xStride], xCols,
			fy[i*yStride:(i+1)*yStride], yCols,
			beta,
			fo[i*oStride:(i+1)*oStride], n)
	}
}

// trmmBatched computes out = alpha*op(a)*out (or out*op(a) when rightside) in
// place, for each batch element, reading only the lower triangle of a.
func (tb typedBlas[T]) trmmBatched(rightside, transpose bool, alpha T, a, out *backends.Buffer) {
	fa, fo := a.Flat.([]T), out.Flat.([]T)
	batch := out.Shape.Dim(0)
	oStride, m, n := matrixDims(out)
	aStride, _, aCols := matrixDims(a)
	side := blas.Left
	if rightside {
		side = blas.Right
	}
	for i := 0; i < batch; i++ {
		tb.trmm(side, blas.Lower, transOf(transpose), blas.NonUnit, m, n, alpha,
			fa[i*aStride:(i+1)*aStride], aCols,
			fo[i*oStride:(i+1)*oStride], n)
	}
}

// copyInto copies src's flat data into dst. Both must have the same size and
// element type.
func copyInto(dst, src *backends.Buffer) {
	switch flat := dst.Flat.(type) {
	case []float64:
		copy(flat, src.Flat.([]float64))
	case []float32:
		copy(flat, src.Flat.([]float32))
	default:
		exceptions.Panicf("goblas: unsupported flat type %T", dst.Flat)
	}
}

// Gemm is the forward matrix-multiply kernel: out = alpha*op(A)*op(B).
// attrs must be a *laops.MatrixMultParams. Use with laops.Kernel2x1.
func Gemm(a, b, out *backends.Buffer, _ backends.Stream, attrs any) {
	params := attrs.(*laops.MatrixMultParams)
	switch out.Flat.(type) {
	case []float64:
		f64.gemmBatched(params.TransposeA, params.TransposeB, params.Alpha, 0, a, b, out)
	case []float32:
		f32.gemmBatched(params.TransposeA, params.TransposeB, float32(params.Alpha), 0, a, b, out)
	default:
		exceptions.Panicf("goblas.Gemm: unsupported flat type %T", out.Flat)
	}
}

// GemmMac is the forward multiply-accumulate kernel:
// out = alpha*op(A)*op(B) + beta*C. attrs must be a *laops.MatrixMacParams.
// Use with laops.Kernel3x1.
func GemmMac(a, b, c, out *backends.Buffer, _ backends.Stream, attrs any) {
	params := attrs.(*laops.MatrixMacParams)
	copyInto(out, c)
	switch out.Flat.(type) {
	case []float64:
		f64.gemmBatched(params.TransposeA, params.TransposeB, params.Alpha, params.Beta, a, b, out)
	case []float32:
		f32.gemmBatched(params.TransposeA, params.TransposeB, float32(params.Alpha), float32(params.Beta), a, b, out)
	default:
		exceptions.Panicf("goblas.GemmMac: unsupported flat type %T", out.Flat)
	}
}

// Trmm is the forward triangular-multiply kernel: out = alpha*op(A)*B, or
// out = alpha*B*op(A) when rightside, with A read as lower triangular.
// attrs must be a *laops.TriangularMultParams. Use with laops.Kernel2x1.
func Trmm(a, b, out *backends.Buffer, _ backends.Stream, attrs any) {
	params := attrs.(*laops.TriangularMultParams)
	copyInto(out, b)
	switch out.Flat.(type) {
	case []float64:
		f64.trmmBatched(params.RightSide, params.Transpose, params.Alpha, a, out)
	case []float32:
		f32.trmmBatched(params.RightSide, params.Transpose, float32(params.Alpha), a, out)
	default:
		exceptions.Panicf("goblas.Trmm: unsupported flat type %T", out.Flat)
	}
}
