package optimizations

import (
	"math"

	"github.com/manningwu07/TTS/utils"
	"gonum.org/v1/gonum/mat"
)

// LayerNorm normalizes each column of a (d x T) input.
// Backward accumulates into Gamma.Grad and Beta.Grad; the owning
// optimizer applies the update.
type LayerNorm struct {
	D     int
	Eps   float64
	Gamma *Param // (d x 1)
	Beta  *Param // (d x 1)

	// cache
	Xhat   *mat.Dense // (d x T)
	InvStd []float64  // per column
}

func NewLayerNorm(d int, eps float64) *LayerNorm {
	return &LayerNorm{
		D:     d,
		Eps:   eps,
		Gamma: NewParam("ln.gamma", utils.OnesLike(mat.NewDense(d, 1, nil))),
		Beta:  NewParam("ln.beta", mat.NewDense(d, 1, nil)),
	}
}

func (ln *LayerNorm) Parameters() []*Param { return []*Param{ln.Gamma, ln.Beta} }

func (ln *LayerNorm) Forward(X *mat.Dense) *mat.Dense {
	d, T := X.Dims()
	if d != ln.D {
		panic("LayerNorm.Forward: row count mismatch")
	}
	out := mat.NewDense(d, T, nil)
	xhat := mat.NewDense(d, T, nil)
	inv := make([]float64, T)
	gamma, beta := ln.Gamma.Value, ln.Beta.Value
	for t := 0; t < T; t++ {
		// mean over rows
		mu := 0.0
		for i := 0; i < d; i++ {
			mu += X.At(i, t)
		}
		mu /= float64(d)
		// variance
		var v float64
		for i := 0; i < d; i++ {
			diff := X.At(i, t) - mu
			v += diff * diff
		}
		v /= float64(d)
		istd := 1.0 / math.Sqrt(v+ln.Eps)
		inv[t] = istd
		// normalize and affine
		for i := 0; i < d; i++ {
			n := (X.At(i, t) - mu) * istd
			xhat.Set(i, t, n)
			out.Set(i, t, gamma.At(i, 0)*n+beta.At(i, 0))
		}
	}
	ln.Xhat = xhat
	ln.InvStd = inv
	return out
}

// Backward accumulates dGamma/dBeta and returns dX.
func (ln *LayerNorm) Backward(dY *mat.Dense) *mat.Dense {
	d, T := dY.Dims()
	gamma := ln.Gamma.Value
	for i := 0; i < d; i++ {
		sumDG := 0.0
		sumDB := 0.0
		for t := 0; t < T; t++ {
			sumDG += dY.At(i, t) * ln.Xhat.At(i, t)
			sumDB += dY.At(i, t)
		}
		ln.Gamma.Grad.Set(i, 0, ln.Gamma.Grad.At(i, 0)+sumDG)
		ln.Beta.Grad.Set(i, 0, ln.Beta.Grad.At(i, 0)+sumDB)
	}

	// dX (per column)
	dX := mat.NewDense(d, T, nil)
	for t := 0; t < T; t++ {
		istd := ln.InvStd[t]
		sum1 := 0.0
		sum2 := 0.0
		for i := 0; i < d; i++ {
			gy := dY.At(i, t) * gamma.At(i, 0)
			sum1 += gy
			sum2 += gy * ln.Xhat.At(i, t)
		}
		for i := 0; i < d; i++ {
			gy := dY.At(i, t) * gamma.At(i, 0)
			dxi := (float64(d)*gy - sum1 - ln.Xhat.At(i, t)*sum2) * (istd / float64(d))
			dX.Set(i, t, dxi)
		}
	}
	return dX
}
