package utils

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix functions used by the criteria and the toy model.

// r = rows of matrix
// c = columns of matrix
// o = output
// m = matrix input number 1
// n = matrix input number 2

func Dot(m, n mat.Matrix) mat.Matrix {
	r, _ := m.Dims()
	_, c := n.Dims()
	o := mat.NewDense(r, c, nil)
	o.Product(m, n)
	return o
}

func Multiply(m, n mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.MulElem(m, n)
	return o
}

// AddBias broadcasts a (r x 1) bias across every column of m.
func AddBias(m, bias *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	rb, cb := bias.Dims()
	if rb != r || cb != 1 {
		panic("addBias: bias must be (r x 1)")
	}
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			out.Set(i, j, m.At(i, j)+bias.At(i, 0))
		}
	}
	return out
}

// RowSums returns per-row sums for a mat.Dense.
func RowSums(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = floats.Sum(m.RawRowView(i))
	}
	return out
}

// Masking stuff

// CausalMask returns (T x T) with 0 on and below diagonal, -Inf above.
func CausalMask(T int) *mat.Dense {
	out := mat.NewDense(T, T, nil)
	negInf := -1e30
	for i := 0; i < T; i++ {
		for j := i + 1; j < T; j++ {
			out.Set(i, j, negInf)
		}
	}
	return out
}

// ---------- Softmax variants ----------

// RowLogSoftmax applies log-softmax independently to each row.
// Rows are positions, columns are classes.
func RowLogSoftmax(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		lse := floats.LogSumExp(row)
		for j := 0; j < c; j++ {
			out.Set(i, j, row[j]-lse)
		}
	}
	return out
}

// RowLogSoftmaxBackward maps dL/d(logp) to dL/d(logits) given the
// log-softmax output: dz = g - softmax * sum(g) per row.
func RowLogSoftmaxBackward(dLogp, logp *mat.Dense) *mat.Dense {
	r, c := logp.Dims()
	if gr, gc := dLogp.Dims(); gr != r || gc != c {
		panic("RowLogSoftmaxBackward: shape mismatch")
	}
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		s := floats.Sum(dLogp.RawRowView(i))
		for j := 0; j < c; j++ {
			out.Set(i, j, dLogp.At(i, j)-math.Exp(logp.At(i, j))*s)
		}
	}
	return out
}

// Sigmoid is the logistic function, written to stay finite for large |x|.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}
