package transformer

import (
	"math/rand/v2"

	"github.com/manningwu07/TTS/optimizations"
	"github.com/manningwu07/TTS/utils"
	"gonum.org/v1/gonum/mat"
)

// Generator is the standard linear + log-softmax output step. It takes
// (d x N) decoder output and returns (N x V) log-probabilities.
type Generator struct {
	Proj *Linear

	lastLogp *mat.Dense
}

func NewGenerator(dModel, vocab int, rng *rand.Rand) *Generator {
	return &Generator{Proj: NewLinear("generator", dModel, vocab, rng)}
}

func (g *Generator) Parameters() []*optimizations.Param { return g.Proj.Parameters() }

func (g *Generator) Forward(x *mat.Dense) *mat.Dense {
	logits := g.Proj.Forward(x) // (V x N)
	g.lastLogp = utils.RowLogSoftmax(logits.T())
	return g.lastLogp
}

// Backward takes dLoss/dLogp (N x V) and returns dLoss/dx (d x N).
func (g *Generator) Backward(dY *mat.Dense) *mat.Dense {
	dz := utils.RowLogSoftmaxBackward(dY, g.lastLogp)
	return g.Proj.Backward(utils.ToDense(dz.T()))
}
