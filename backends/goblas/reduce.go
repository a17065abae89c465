package goblas

import (
	"math"

	"github.com/gomlx/exceptions"
	"golang.org/x/exp/constraints"

	"github.com/gomlx/linalg/backends"
)

// SumLogDiag is the reduce-to-scalar kernel over the trailing two axes: for
// each batch element, the sum of the log of the diagonal of its (square)
// matrix. Takes no attrs. Use with laops.Kernel1x1, inputRank 2, outputRank 1.
func SumLogDiag(a, out *backends.Buffer, _ backends.Stream, _ any) {
	switch flat := a.Flat.(type) {
	case []float64:
		sumLogDiag(flat, out.Flat.([]float64), a.Shape.Dim(0), a.Shape.Dim(2))
	case []float32:
		sumLogDiag(flat, out.Flat.([]float32), a.Shape.Dim(0), a.Shape.Dim(2))
	default:
		exceptions.Panicf("goblas.SumLogDiag: unsupported flat type %T", a.Flat)
	}
}

func sumLogDiag[T constraints.Float](in, out []T, batch, n int) {
	for i := 0; i < batch; i++ {
		matrix := in[i*n*n : (i+1)*n*n]
		var sum float64
		for j := 0; j < n; j++ {
			sum += math.Log(float64(matrix[j*n+j]))
		}
		out[i] = T(sum)
	}
}

// SumLogDiagGrad is the gradient kernel of SumLogDiag: inputs (dOut, A),
// output dA with dA[j][j] = dOut/A[j][j] and zero off the diagonal. Takes no
// attrs. Use with laops.Kernel2x1, inputRank 2, outputRank 2.
func SumLogDiagGrad(g, a, dA *backends.Buffer, _ backends.Stream, _ any) {
	switch flat := a.Flat.(type) {
	case []float64:
		sumLogDiagGrad(g.Flat.([]float64), flat, dA.Flat.([]float64), a.Shape.Dim(0), a.Shape.Dim(2))
	case []float32:
		sumLogDiagGrad(g.Flat.([]float32), flat, dA.Flat.([]float32), a.Shape.Dim(0), a.Shape.Dim(2))
	default:
		exceptions.Panicf("goblas.SumLogDiagGrad: unsupported flat type %T", a.Flat)
	}
}

func sumLogDiagGrad[T constraints.Float](g, in, out []T, batch, n int) {
	clear(out)
	for i := 0; i < batch; i++ {
		matrix := in[i*n*n : (i+1)*n*n]
		grad := out[i*n*n : (i+1)*n*n]
		for j := 0; j < n; j++ {
			grad[j*n+j] = g[i] / matrix[j*n+j]
		}
	}
}
