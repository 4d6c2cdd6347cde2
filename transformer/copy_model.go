package transformer

import (
	"math/rand/v2"

	"github.com/manningwu07/TTS/batch"
	"github.com/manningwu07/TTS/optimizations"
	"gonum.org/v1/gonum/mat"
)

// CopyModel is an aligned baseline for the copy task: output position t
// reads the source token at t+1 through an embedding and a layer norm.
// It has no attention; it exists to drive the training loop end to end.
type CopyModel struct {
	DModel int
	Pad    int
	Embed  *Embedding
	Norm   *optimizations.LayerNorm
	Gen    *Generator
}

func NewCopyModel(vocab, dModel, pad int, rng *rand.Rand) *CopyModel {
	m := &CopyModel{
		DModel: dModel,
		Pad:    pad,
		Embed:  NewEmbedding("copy.embed", dModel, vocab, rng),
		Norm:   optimizations.NewLayerNorm(dModel, 1e-5),
		Gen:    NewGenerator(dModel, vocab, rng),
	}
	m.Norm.Gamma.Name = "copy.ln.gamma"
	m.Norm.Beta.Name = "copy.ln.beta"
	return m
}

func (m *CopyModel) Parameters() []*optimizations.Param {
	ps := []*optimizations.Param{m.Embed.W}
	ps = append(ps, m.Norm.Parameters()...)
	return append(ps, m.Gen.Parameters()...)
}

// Forward returns (d x B*(S-1)) decoder output, columns ordered like
// b.FlatTrgY(). Padding source positions contribute zero embeddings.
func (m *CopyModel) Forward(b batch.Batch) *mat.Dense {
	var ids []int
	for i, seq := range b.Src {
		for t := 1; t < len(seq); t++ {
			if b.SrcMask[i][t] {
				ids = append(ids, seq[t])
			} else {
				ids = append(ids, -1)
			}
		}
	}
	return m.Norm.Forward(m.Embed.Forward(ids))
}

// Backward takes dLoss/d(decoder output) and accumulates grads.
func (m *CopyModel) Backward(dY *mat.Dense) *mat.Dense {
	dX := m.Norm.Backward(dY)
	m.Embed.Backward(dX)
	return dX
}

// Greedy decodes argmax ids, one row of S-1 ids per source sequence.
func (m *CopyModel) Greedy(b batch.Batch) [][]int {
	logp := m.Gen.Forward(m.Forward(b))
	out := make([][]int, len(b.Src))
	row := 0
	for i, seq := range b.Src {
		for t := 1; t < len(seq); t++ {
			best, bestID := logp.At(row, 0), 0
			for j := 1; j < m.Gen.Proj.Out; j++ {
				if v := logp.At(row, j); v > best {
					best, bestID = v, j
				}
			}
			out[i] = append(out[i], bestID)
			row++
		}
	}
	return out
}
