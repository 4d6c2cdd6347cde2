package transformer

import (
	"fmt"
	"math/rand/v2"

	"github.com/manningwu07/TTS/optimizations"
	"github.com/manningwu07/TTS/utils"
	"gonum.org/v1/gonum/mat"
)

// Embedding maps ids to columns of W (d x V). Negative ids give zero
// columns, used for positions with nothing to attend to.
type Embedding struct {
	W *optimizations.Param

	// cache for backprop
	lastIDs []int
}

func NewEmbedding(name string, d, vocab int, rng *rand.Rand) *Embedding {
	w := mat.NewDense(d, vocab, utils.RandomArray(rng, d*vocab, float64(d)))
	return &Embedding{W: optimizations.NewParam(name, w)}
}

// Forward returns a (d x len(ids)) matrix.
func (e *Embedding) Forward(ids []int) *mat.Dense {
	d, V := e.W.Value.Dims()
	out := mat.NewDense(d, len(ids), nil)
	for t, id := range ids {
		if id < 0 {
			continue
		}
		if id >= V {
			panic(fmt.Sprintf("Embedding.Forward: id %d out of range for vocab %d", id, V))
		}
		for i := 0; i < d; i++ {
			out.Set(i, t, e.W.Value.At(i, id))
		}
	}
	e.lastIDs = ids
	return out
}

// Backward scatter-adds dX columns into W.Grad.
func (e *Embedding) Backward(dX *mat.Dense) {
	d, T := dX.Dims()
	if T != len(e.lastIDs) {
		panic("Embedding.Backward: column count does not match last Forward")
	}
	for t, id := range e.lastIDs {
		if id < 0 {
			continue
		}
		for i := 0; i < d; i++ {
			e.W.Grad.Set(i, id, e.W.Grad.At(i, id)+dX.At(i, t))
		}
	}
}

// Linear computes W X + b on (in x N) inputs.
type Linear struct {
	In, Out int
	W       *optimizations.Param // (out x in)
	B       *optimizations.Param // (out x 1)

	lastInput *mat.Dense
}

func NewLinear(name string, in, out int, rng *rand.Rand) *Linear {
	return &Linear{
		In:  in,
		Out: out,
		W:   optimizations.NewParam(name+".w", mat.NewDense(out, in, utils.RandomArray(rng, in*out, float64(in)))),
		B:   optimizations.NewParam(name+".b", mat.NewDense(out, 1, nil)),
	}
}

func (l *Linear) Parameters() []*optimizations.Param {
	return []*optimizations.Param{l.W, l.B}
}

func (l *Linear) Forward(X *mat.Dense) *mat.Dense {
	l.lastInput = X
	return utils.AddBias(utils.ToDense(utils.Dot(l.W.Value, X)), l.B.Value)
}

// Backward accumulates dW = dY Xᵀ and db = Σ_t dY, and returns Wᵀ dY.
func (l *Linear) Backward(dY *mat.Dense) *mat.Dense {
	dW := utils.ToDense(utils.Dot(dY, l.lastInput.T()))
	l.W.Grad.Add(l.W.Grad, dW)
	for i, s := range utils.RowSums(dY) {
		l.B.Grad.Set(i, 0, l.B.Grad.At(i, 0)+s)
	}
	return utils.ToDense(utils.Dot(l.W.Value.T(), dY))
}
