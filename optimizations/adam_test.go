package optimizations

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/manningwu07/TTS/utils"
	"gonum.org/v1/gonum/mat"
)

func TestAdamMinimizesQuadratic(t *testing.T) {
	p := NewParam("x", mat.NewDense(1, 2, []float64{3, -2}))
	adam := NewAdam([]*Param{p}, 0.1, 0.9, 0.999, 1e-8)
	for i := 0; i < 300; i++ {
		// f = 0.5*|x|^2, grad = x
		p.Grad.Copy(p.Value)
		adam.Step()
		adam.ZeroGrad()
	}
	if n := utils.MatrixNorm(p.Value); n > 0.5 {
		t.Fatalf("expected x near 0, |x|=%g", n)
	}
}

func TestAdamZeroGrad(t *testing.T) {
	p := NewParam("x", mat.NewDense(1, 1, []float64{1}))
	p.Grad.Set(0, 0, 5)
	NewAdam([]*Param{p}, 0.1, 0.9, 0.999, 1e-8).ZeroGrad()
	if p.Grad.At(0, 0) != 0 {
		t.Fatal("grad not cleared")
	}
}

func TestAdamUpdateShapeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	p := mat.NewDense(2, 2, nil)
	AdamUpdateInPlace(p, mat.NewDense(1, 2, nil), mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil),
		1, 0.1, 0.9, 0.999, 1e-8, 0)
}

func TestCustomAdamTracksRateAndSchedules(t *testing.T) {
	p := NewParam("x", mat.NewDense(1, 1, []float64{1}))
	adam := NewAdam([]*Param{p}, 0.5, 0.9, 0.999, 1e-8)
	sched := NewPlateauScheduler(adam, 0.5, 0)
	c := NewCustomAdam(adam, sched)

	c.Step(1.0)
	if c.Rate() != 0.5 {
		t.Fatalf("expected recorded rate 0.5, got %g", c.Rate())
	}
	// No improvement with patience 0 halves the lr after the update.
	c.Step(1.0)
	if c.Rate() != 0.5 {
		t.Fatalf("rate recorded before scheduler step should stay 0.5, got %g", c.Rate())
	}
	if adam.ParamGroups()[0].LR != 0.25 {
		t.Fatalf("expected scheduler to halve lr, got %g", adam.ParamGroups()[0].LR)
	}
	c.Step(1.0)
	if c.Rate() != 0.25 {
		t.Fatalf("expected recorded rate 0.25, got %g", c.Rate())
	}
	if c.Steps() != 3 {
		t.Fatalf("expected 3 steps, got %d", c.Steps())
	}
}

func TestCustomAdamWithoutScheduler(t *testing.T) {
	p := NewParam("x", mat.NewDense(1, 1, []float64{1}))
	adam := NewAdam([]*Param{p}, 0.01, 0.9, 0.999, 1e-8)
	c := NewCustomAdam(adam, nil)
	p.Grad.Set(0, 0, 1)
	c.Step(0)
	if p.Value.At(0, 0) >= 1 {
		t.Fatal("expected parameter to move against the gradient")
	}
}

func TestPlateauRespectsMinLR(t *testing.T) {
	adam := NewAdam(nil, 1e-3, 0.9, 0.999, 1e-8)
	s := NewPlateauScheduler(adam, 0.1, 0)
	s.MinLR = 5e-4
	s.Step(1)
	s.Step(1)
	if lr := adam.ParamGroups()[0].LR; lr != 5e-4 {
		t.Fatalf("expected lr clamped to 5e-4, got %g", lr)
	}
}

func TestWarmupCosineSchedule(t *testing.T) {
	adam := NewAdam(nil, 0, 0.9, 0.999, 1e-8)
	w := NewWarmupCosine(adam, 1.0, 10, 100)
	if lr := adam.ParamGroups()[0].LR; math.Abs(lr-0.1) > 1e-12 {
		t.Fatalf("expected first-step lr 0.1, got %g", lr)
	}
	if r := w.RateAt(10); r != 1.0 {
		t.Fatalf("expected peak at end of warmup, got %g", r)
	}
	if r := w.RateAt(110); math.Abs(r) > 1e-12 {
		t.Fatalf("expected full decay, got %g", r)
	}
	w.Step(0)
	if lr := adam.ParamGroups()[0].LR; math.Abs(lr-0.2) > 1e-12 {
		t.Fatalf("expected second-step lr 0.2, got %g", lr)
	}
}

func TestClipGradNorm(t *testing.T) {
	a := NewParam("a", mat.NewDense(1, 2, []float64{0, 0}))
	b := NewParam("b", mat.NewDense(1, 1, []float64{0}))
	a.Grad.SetRow(0, []float64{6, 0})
	b.Grad.Set(0, 0, 8)
	norm := ClipGradNorm([]*Param{a, b}, 1.0)
	if math.Abs(norm-10) > 1e-12 {
		t.Fatalf("expected pre-clip norm 10, got %g", norm)
	}
	after := math.Hypot(a.Grad.At(0, 0), b.Grad.At(0, 0))
	if math.Abs(after-1) > 1e-5 {
		t.Fatalf("expected clipped norm 1, got %g", after)
	}
}

func finiteDiffCheck(t *testing.T, name string, param *mat.Dense, grad *mat.Dense,
	forward func() float64, i, j int) {

	eps := 1e-5
	w0 := param.At(i, j)

	param.Set(i, j, w0+eps)
	lp := forward()

	param.Set(i, j, w0-eps)
	lm := forward()

	param.Set(i, j, w0)

	numGrad := (lp - lm) / (2.0 * eps)
	anaGrad := grad.At(i, j)

	if math.Abs(numGrad-anaGrad) > 1e-4 {
		t.Fatalf("%s[%d,%d] grad mismatch: num=%.6g ana=%.6g",
			name, i, j, numGrad, anaGrad)
	}
}

func TestLayerNormGradCheck(t *testing.T) {
	rng := rand.New(rand.NewPCG(123, 0))
	d, T := 4, 3
	ln := NewLayerNorm(d, 1e-5)
	ln.Gamma.Value = mat.NewDense(d, 1, utils.RandomArray(rng, d, 1))
	ln.Gamma.Grad = mat.NewDense(d, 1, nil)
	x := mat.NewDense(d, T, utils.RandomArray(rng, d*T, 1))
	w := mat.NewDense(d, T, utils.RandomArray(rng, d*T, 1))

	// loss = sum(w .* LN(x))
	forward := func() float64 {
		return mat.Sum(utils.Multiply(w, ln.Forward(x)))
	}

	forward()
	dX := ln.Backward(w)

	finiteDiffCheck(t, "gamma", ln.Gamma.Value, ln.Gamma.Grad, forward, 1, 0)
	finiteDiffCheck(t, "beta", ln.Beta.Value, ln.Beta.Grad, forward, 2, 0)
	finiteDiffCheck(t, "x", x, dX, forward, 3, 1)
}
