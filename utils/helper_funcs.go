package utils

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/manningwu07/TTS/params"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// RandomArray draws size values uniformly from ±1/sqrt(v).
func RandomArray(rng *rand.Rand, size int, v float64) []float64 {
	bound := 1.0 / math.Sqrt(v+1e-12)
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: rng}
	out := make([]float64, size)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// Helper functions

func ToDense(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(m)
}

func MatrixNorm(m *mat.Dense) float64 {
	return mat.Norm(m, 2)
}

func ZerosLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	return mat.NewDense(r, c, nil)
}

func OnesLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, 1)
		}
	}
	return out
}

// debugging and clipping.

// Debugf prints when params.Config.Debug is on.
func Debugf(format string, args ...any) {
	if !params.Config.Debug {
		return
	}
	fmt.Printf("[debug] "+format+"\n", args...)
}

// ClipGrads scales all grads so their combined norm <= maxNorm.
// Returns the total norm before clipping and the scale actually applied
// (<=1.0, or 1.0 if no clip).
func ClipGrads(maxNorm float64, grads ...*mat.Dense) (float64, float64) {
	sum := 0.0
	for _, g := range grads {
		if g == nil {
			continue
		}
		n := mat.Norm(g, 2)
		sum += n * n
	}
	gn := math.Sqrt(sum)
	if maxNorm <= 0 || gn <= maxNorm || gn == 0 {
		return gn, 1.0
	}
	s := maxNorm / (gn + 1e-6)
	for _, g := range grads {
		if g != nil {
			g.Scale(s, g)
		}
	}
	return gn, s
}
