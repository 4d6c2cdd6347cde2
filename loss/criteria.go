package loss

import (
	"fmt"
	"math"

	"github.com/manningwu07/TTS/utils"
	"gonum.org/v1/gonum/mat"
)

// Criterion is a mean-reduced loss over a batch of (T x C) predictions.
// It returns the loss and dLoss/dx for every example.
type Criterion interface {
	Loss(x, y []*mat.Dense) (float64, []*mat.Dense)
}

// MSELoss is the mean squared error over every element of the batch.
type MSELoss struct{}

func (MSELoss) Loss(x, y []*mat.Dense) (float64, []*mat.Dense) {
	return meanReduce("MSELoss", x, y, func(d float64) (float64, float64) {
		return d * d, 2 * d
	})
}

// L1Loss is the mean absolute error over every element of the batch.
type L1Loss struct{}

func (L1Loss) Loss(x, y []*mat.Dense) (float64, []*mat.Dense) {
	return meanReduce("L1Loss", x, y, func(d float64) (float64, float64) {
		switch {
		case d > 0:
			return d, 1
		case d < 0:
			return -d, -1
		}
		return 0, 0
	})
}

// meanReduce applies f to every difference x-y; f returns the element
// loss and its derivative.
func meanReduce(name string, x, y []*mat.Dense, f func(d float64) (float64, float64)) (float64, []*mat.Dense) {
	if len(x) != len(y) {
		panic(fmt.Sprintf("%s: %d predictions but %d targets", name, len(x), len(y)))
	}
	n := 0
	for b := range x {
		r, c := x[b].Dims()
		if yr, yc := y[b].Dims(); yr != r || yc != c {
			panic(fmt.Sprintf("%s: example %d is %dx%d, target %dx%d", name, b, r, c, yr, yc))
		}
		n += r * c
	}
	if n == 0 {
		return 0, nil
	}
	total := 0.0
	grads := make([]*mat.Dense, len(x))
	for b := range x {
		r, c := x[b].Dims()
		g := mat.NewDense(r, c, nil)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				l, dl := f(x[b].At(i, j) - y[b].At(i, j))
				total += l
				g.Set(i, j, dl/float64(n))
			}
		}
		grads[b] = g
	}
	return total / float64(n), grads
}

// BCEWithLogits computes elementwise binary cross-entropy on logits
// without reduction. grad holds d(element loss)/dx.
func BCEWithLogits(x, y *mat.Dense) (l, grad *mat.Dense) {
	r, c := x.Dims()
	if yr, yc := y.Dims(); yr != r || yc != c {
		panic(fmt.Sprintf("BCEWithLogits: logits %dx%d, target %dx%d", r, c, yr, yc))
	}
	l = mat.NewDense(r, c, nil)
	grad = mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			z, t := x.At(i, j), y.At(i, j)
			// max(z,0) - z*t + log(1 + exp(-|z|))
			l.Set(i, j, math.Max(z, 0)-z*t+math.Log1p(math.Exp(-math.Abs(z))))
			grad.Set(i, j, utils.Sigmoid(z)-t)
		}
	}
	return l, grad
}
