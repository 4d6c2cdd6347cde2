package optimizations

import "github.com/manningwu07/TTS/params"

// Scheduler adjusts learning rates after an optimizer update.
type Scheduler interface {
	Step(loss float64)
}

// CustomAdam leaves the rate to an external scheduler and only records
// the most recent rate for logging.
type CustomAdam struct {
	Optimizer Optimizer
	Scheduler Scheduler

	step int
	rate float64
}

func NewCustomAdam(opt Optimizer, sched Scheduler) *CustomAdam {
	return &CustomAdam{Optimizer: opt, Scheduler: sched}
}

func (c *CustomAdam) Step(loss float64) {
	c.step++
	for _, g := range c.Optimizer.ParamGroups() {
		c.rate = g.LR
	}
	c.Optimizer.Step()
	if c.Scheduler != nil {
		c.Scheduler.Step(loss)
	}
	if params.Config.Debug && c.step%params.Config.DebugEvery == 0 {
		debugRate("custom", c.step, c.rate)
	}
}

// Rate returns the rate the last Step trained with.
func (c *CustomAdam) Rate() float64 { return c.rate }

func (c *CustomAdam) Steps() int { return c.step }

func (c *CustomAdam) ZeroGrad() { c.Optimizer.ZeroGrad() }
