package optimizations

import (
	"math"

	"github.com/manningwu07/TTS/params"
)

// NoamOpt sets the learning rate of the wrapped optimizer from the
// step count before every update:
//
//	rate = factor * modelSize^-0.5 * min(step^-0.5, step * warmup^-1.5)
type NoamOpt struct {
	Optimizer Optimizer
	ModelSize int
	Factor    float64
	Warmup    int

	step int
	rate float64
}

func NewNoamOpt(modelSize int, factor float64, warmup int, opt Optimizer) *NoamOpt {
	return &NoamOpt{
		Optimizer: opt,
		ModelSize: modelSize,
		Factor:    factor,
		Warmup:    warmup,
	}
}

// GetStdOpt is the schedule from the original Transformer paper setup:
// factor 2, 4000 warmup steps, Adam(0.9, 0.98, 1e-9).
func GetStdOpt(modelSize int, ps []*Param) *NoamOpt {
	return NewNoamOpt(modelSize, 2, 4000, NewAdam(ps, 0, 0.9, 0.98, 1e-9))
}

// Step updates the rate and the parameters. loss is unused; it keeps
// NoamOpt interchangeable with CustomAdam.
func (o *NoamOpt) Step(loss float64) {
	o.step++
	rate := o.RateAt(o.step)
	for _, g := range o.Optimizer.ParamGroups() {
		g.LR = rate
	}
	o.rate = rate
	o.Optimizer.Step()
	if params.Config.Debug && o.step%params.Config.DebugEvery == 0 {
		debugRate("noam", o.step, rate)
	}
}

// RateAt evaluates the schedule at step; step 0 yields 0.
func (o *NoamOpt) RateAt(step int) float64 {
	if step <= 0 {
		return 0
	}
	s := float64(step)
	w := float64(o.Warmup)
	return o.Factor * math.Pow(float64(o.ModelSize), -0.5) *
		math.Min(math.Pow(s, -0.5), s*math.Pow(w, -1.5))
}

// Rate returns the learning rate applied by the last Step.
func (o *NoamOpt) Rate() float64 { return o.rate }

func (o *NoamOpt) Steps() int { return o.step }

func (o *NoamOpt) ZeroGrad() { o.Optimizer.ZeroGrad() }
