package loss

import (
	"fmt"
	"time"

	"github.com/manningwu07/TTS/optimizations"
	"github.com/manningwu07/TTS/utils"
	"gonum.org/v1/gonum/mat"
)

// Generator projects decoder output to (N x V) log-probabilities.
// Backward accumulates parameter grads and returns dLoss/dInput.
type Generator interface {
	Forward(x *mat.Dense) *mat.Dense
	Backward(dY *mat.Dense) *mat.Dense
}

// Backwarder receives the gradient w.r.t. the decoder output.
type Backwarder interface {
	Backward(dY *mat.Dense) *mat.Dense
}

// FrameModel is the tt2 model as seen by the loss: it backpropagates
// mel and stop-logit gradients and exposes its params for clipping.
type FrameModel interface {
	Backward(dMel, dStop []*mat.Dense)
	Parameters() []*optimizations.Param
}

// SimpleLossCompute runs one training step for the token copy task.
type SimpleLossCompute struct {
	Generator Generator
	Criterion *LabelSmoothing
	Opt       optimizations.Stepper // nil for evaluation
	Model     Backwarder            // optional, receives dLoss/dx
}

func NewSimpleLossCompute(gen Generator, crit *LabelSmoothing, opt optimizations.Stepper) *SimpleLossCompute {
	return &SimpleLossCompute{Generator: gen, Criterion: crit, Opt: opt}
}

// Compute takes decoder output x, flattened targets y and the token
// count norm. It backpropagates loss/norm and returns the unnormalized
// loss.
func (c *SimpleLossCompute) Compute(x *mat.Dense, y []int, norm float64) float64 {
	logp := c.Generator.Forward(x)
	loss := c.Criterion.Forward(logp, y) / norm

	grad := c.Criterion.Grad()
	grad.Scale(1/norm, grad)
	dX := c.Generator.Backward(grad)
	if c.Model != nil {
		c.Model.Backward(dX)
	}

	if c.Opt != nil {
		c.Opt.Step(loss)
		c.Opt.ZeroGrad()
	}
	return loss * norm
}

// TT2LossCompute runs one training step for the mel/stop-token task.
type TT2LossCompute struct {
	Criterion          Criterion
	Opt                optimizations.Stepper
	StopWeight         float64 // weight of the stop loss in the total
	PositiveStopWeight float64 // extra weight on every example's last frame
	ClipNorm           float64
}

func NewTT2LossCompute(crit Criterion, opt optimizations.Stepper, stopWeight, positiveStopWeight float64) *TT2LossCompute {
	return &TT2LossCompute{
		Criterion:          crit,
		Opt:                opt,
		StopWeight:         stopWeight,
		PositiveStopWeight: positiveStopWeight,
		ClipNorm:           1.0,
	}
}

// Compute combines the frame loss with the weighted stop loss,
// backpropagates, clips, steps, and returns loss*norm.
func (c *TT2LossCompute) Compute(x, y, stopX, stopY []*mat.Dense, norm float64, model FrameModel) float64 {
	stopLoss, dStop := c.StopLoss(stopX, stopY)
	frameLoss, dMel := c.Criterion.Loss(x, y)
	loss := frameLoss + c.StopWeight*stopLoss

	for _, g := range dStop {
		g.Scale(c.StopWeight, g)
	}
	t0 := time.Now()
	model.Backward(dMel, dStop)
	utils.Debugf("backprop: %.6f", time.Since(t0).Seconds())

	optimizations.ClipGradNorm(model.Parameters(), c.ClipNorm)
	if c.Opt != nil {
		c.Opt.Step(loss)
		c.Opt.ZeroGrad()
	}
	return loss * norm
}

// StopLoss is the mean elementwise BCE of stop logits, with the final
// frame of every example weighted by PositiveStopWeight to offset how
// rare positive stop frames are.
func (c *TT2LossCompute) StopLoss(stopX, stopY []*mat.Dense) (float64, []*mat.Dense) {
	if len(stopX) != len(stopY) {
		panic(fmt.Sprintf("TT2LossCompute: %d stop predictions but %d targets", len(stopX), len(stopY)))
	}
	n := 0
	for _, x := range stopX {
		r, cols := x.Dims()
		n += r * cols
	}
	if n == 0 {
		return 0, nil
	}
	total := 0.0
	grads := make([]*mat.Dense, len(stopX))
	for b := range stopX {
		l, g := BCEWithLogits(stopX[b], stopY[b])
		r, cols := l.Dims()
		for i := 0; i < r; i++ {
			w := 1.0
			if i == r-1 {
				w = c.PositiveStopWeight
			}
			for j := 0; j < cols; j++ {
				total += w * l.At(i, j)
				g.Set(i, j, w*g.At(i, j)/float64(n))
			}
		}
		grads[b] = g
	}
	return total / float64(n), grads
}
