package optimizations

import (
	"math"

	"github.com/manningwu07/TTS/utils"
)

// PlateauScheduler multiplies every group's LR by Factor once the loss
// has not improved by more than Threshold (relative) for Patience steps.
type PlateauScheduler struct {
	Optimizer Optimizer
	Factor    float64
	Patience  int
	Threshold float64
	MinLR     float64

	best     float64
	badSteps int
	started  bool
}

func NewPlateauScheduler(opt Optimizer, factor float64, patience int) *PlateauScheduler {
	return &PlateauScheduler{
		Optimizer: opt,
		Factor:    factor,
		Patience:  patience,
		Threshold: 1e-4,
	}
}

func (s *PlateauScheduler) Step(loss float64) {
	if math.IsNaN(loss) {
		return
	}
	if !s.started || loss < s.best*(1-s.Threshold) {
		s.best = loss
		s.badSteps = 0
		s.started = true
		return
	}
	s.badSteps++
	if s.badSteps <= s.Patience {
		return
	}
	for _, g := range s.Optimizer.ParamGroups() {
		g.LR = math.Max(g.LR*s.Factor, s.MinLR)
	}
	utils.Debugf("plateau: lr reduced after %d bad steps", s.badSteps)
	s.badSteps = 0
}

// WarmupCosine ramps LR linearly to Peak over WarmupSteps, then follows
// a cosine decay to zero over DecaySteps (0 = hold at Peak).
type WarmupCosine struct {
	Optimizer   Optimizer
	Peak        float64
	WarmupSteps int
	DecaySteps  int

	step int
}

// NewWarmupCosine primes every group with the rate for the first step.
func NewWarmupCosine(opt Optimizer, peak float64, warmup, decay int) *WarmupCosine {
	w := &WarmupCosine{Optimizer: opt, Peak: peak, WarmupSteps: warmup, DecaySteps: decay}
	for _, g := range opt.ParamGroups() {
		g.LR = w.RateAt(1)
	}
	return w
}

func (w *WarmupCosine) Step(float64) {
	w.step++
	lr := w.RateAt(w.step + 1)
	for _, g := range w.Optimizer.ParamGroups() {
		g.LR = lr
	}
}

// RateAt evaluates the schedule at step.
func (w *WarmupCosine) RateAt(step int) float64 {
	if step <= 0 {
		return 0
	}
	wu := w.WarmupSteps
	dec := w.DecaySteps
	if wu > 0 && step < wu {
		return w.Peak * float64(step) / float64(wu)
	}
	if dec > 0 {
		x := float64(step-wu) / float64(dec)
		if x > 1 {
			x = 1
		} else if x < 0 {
			x = 0
		}
		return w.Peak * 0.5 * (1 + math.Cos(math.Pi*x))
	}
	return w.Peak
}

func debugRate(name string, step int, rate float64) {
	utils.Debugf("%s: step=%d lr=%.6g", name, step, rate)
}
