package transformer

import (
	"fmt"
	"math/rand/v2"

	"github.com/manningwu07/TTS/batch"
	"github.com/manningwu07/TTS/optimizations"
	"github.com/manningwu07/TTS/utils"
	"gonum.org/v1/gonum/mat"
)

// Frame phases fed alongside the token embedding.
const (
	phaseFrame     = 0 // inside a token
	phaseLastFrame = 1 // last real frame of the utterance
	phasePadding   = 2 // after the utterance
)

// FrameModel predicts mel frames and stop logits for the tt2 copy task.
// Predicted frame t (target frame t+1) reads the source token that
// frame was rendered from, so it assumes FramesPerToken matches the
// frame spec the targets were built with.
type FrameModel struct {
	DModel         int
	NMels          int
	FramesPerToken int
	Pad            int

	Token *Embedding
	Phase *Embedding
	Norm  *optimizations.LayerNorm
	Mel   *Linear // (nMels x d)
	Stop  *Linear // (1 x d)

	// cache for backprop
	lastLens []int
}

func NewFrameModel(vocab, dModel, nMels, framesPerToken, pad int, rng *rand.Rand) *FrameModel {
	m := &FrameModel{
		DModel:         dModel,
		NMels:          nMels,
		FramesPerToken: framesPerToken,
		Pad:            pad,
		Token:          NewEmbedding("tt2.token", dModel, vocab, rng),
		Phase:          NewEmbedding("tt2.phase", dModel, 3, rng),
		Norm:           optimizations.NewLayerNorm(dModel, 1e-5),
		Mel:            NewLinear("tt2.mel", dModel, nMels, rng),
		Stop:           NewLinear("tt2.stop", dModel, 1, rng),
	}
	m.Norm.Gamma.Name = "tt2.ln.gamma"
	m.Norm.Beta.Name = "tt2.ln.beta"
	return m
}

func (m *FrameModel) Parameters() []*optimizations.Param {
	ps := []*optimizations.Param{m.Token.W, m.Phase.W}
	ps = append(ps, m.Norm.Parameters()...)
	ps = append(ps, m.Mel.Parameters()...)
	return append(ps, m.Stop.Parameters()...)
}

// inputs returns the token and phase ids of every predicted frame.
func (m *FrameModel) inputs(b batch.Batch) (tok, phase []int, lens []int) {
	if len(b.TrgYFrames) != len(b.Src) {
		panic(fmt.Sprintf("FrameModel: %d sources but %d frame targets", len(b.Src), len(b.TrgYFrames)))
	}
	for i, seq := range b.Src {
		var real []int
		for _, id := range seq {
			if id != m.Pad {
				real = append(real, id)
			}
		}
		last := len(real)*m.FramesPerToken - 1
		T, _ := b.TrgYFrames[i].Dims()
		for t := 0; t < T; t++ {
			f := t + 1
			switch {
			case f > last:
				tok = append(tok, -1)
				phase = append(phase, phasePadding)
			case f == last:
				tok = append(tok, real[f/m.FramesPerToken])
				phase = append(phase, phaseLastFrame)
			default:
				tok = append(tok, real[f/m.FramesPerToken])
				phase = append(phase, phaseFrame)
			}
		}
		lens = append(lens, T)
	}
	return tok, phase, lens
}

// Forward returns per-example mel predictions (T-1 x nMels) and stop
// logits (T-1 x 1), aligned with b.TrgYFrames and b.StopTokens.
func (m *FrameModel) Forward(b batch.Batch) (mel, stop []*mat.Dense) {
	tok, phase, lens := m.inputs(b)
	x := m.Token.Forward(tok)
	x.Add(x, m.Phase.Forward(phase))
	h := m.Norm.Forward(x)

	melAll := m.Mel.Forward(h)   // (nMels x N)
	stopAll := m.Stop.Forward(h) // (1 x N)
	m.lastLens = lens

	col := 0
	for _, T := range lens {
		mel = append(mel, mat.DenseCopyOf(melAll.Slice(0, m.NMels, col, col+T).T()))
		stop = append(stop, mat.DenseCopyOf(stopAll.Slice(0, 1, col, col+T).T()))
		col += T
	}
	return mel, stop
}

// Backward takes per-example dLoss/dMel and dLoss/dStop and accumulates
// grads into every param.
func (m *FrameModel) Backward(dMel, dStop []*mat.Dense) {
	n := 0
	for _, T := range m.lastLens {
		n += T
	}
	gMel := mat.NewDense(m.NMels, n, nil)
	gStop := mat.NewDense(1, n, nil)
	col := 0
	for i, T := range m.lastLens {
		gMel.Slice(0, m.NMels, col, col+T).(*mat.Dense).Copy(dMel[i].T())
		gStop.Slice(0, 1, col, col+T).(*mat.Dense).Copy(dStop[i].T())
		col += T
	}

	dH := m.Mel.Backward(gMel)
	dH.Add(dH, m.Stop.Backward(gStop))
	dX := m.Norm.Backward(dH)
	m.Token.Backward(dX)
	m.Phase.Backward(dX)
	utils.Debugf("FrameModel: backward over %d frames", n)
}
