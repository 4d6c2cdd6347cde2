package loss

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

func checkCriterionGrad(t *testing.T, name string, c Criterion) {
	t.Helper()
	x := []*mat.Dense{
		mat.NewDense(2, 2, []float64{0.5, -0.25, 1.5, 0.1}),
		mat.NewDense(1, 2, []float64{-2, 0.3}),
	}
	y := []*mat.Dense{
		mat.NewDense(2, 2, []float64{0, 0, 1, 1}),
		mat.NewDense(1, 2, []float64{1, -1}),
	}
	_, grads := c.Loss(x, y)

	for b := range x {
		r, cols := x[b].Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < cols; j++ {
				x0 := x[b].At(i, j)
				f := func(v float64) float64 {
					x[b].Set(i, j, v)
					l, _ := c.Loss(x, y)
					x[b].Set(i, j, x0)
					return l
				}
				num := fd.Derivative(f, x0, &fd.Settings{Formula: fd.Central})
				if math.Abs(num-grads[b].At(i, j)) > 1e-6 {
					t.Fatalf("%s grad[%d][%d,%d]: num=%g ana=%g", name, b, i, j, num, grads[b].At(i, j))
				}
			}
		}
	}
}

func TestMSELossGrad(t *testing.T) { checkCriterionGrad(t, "mse", MSELoss{}) }

func TestL1LossGrad(t *testing.T) { checkCriterionGrad(t, "l1", L1Loss{}) }

func TestMSELossValue(t *testing.T) {
	l, _ := MSELoss{}.Loss(
		[]*mat.Dense{mat.NewDense(1, 2, []float64{1, 3})},
		[]*mat.Dense{mat.NewDense(1, 2, []float64{0, 0})},
	)
	if l != 5 {
		t.Fatalf("mse=%g want 5", l)
	}
}

func TestBCEWithLogits(t *testing.T) {
	x := mat.NewDense(1, 4, []float64{0, 2, -2, 800})
	y := mat.NewDense(1, 4, []float64{1, 1, 0, 1})
	l, g := BCEWithLogits(x, y)
	sig := func(z float64) float64 { return 1 / (1 + math.Exp(-z)) }
	for j, want := range []float64{
		-math.Log(0.5),
		-math.Log(sig(2)),
		-math.Log(1 - sig(-2)),
		0,
	} {
		if math.Abs(l.At(0, j)-want) > 1e-12 {
			t.Fatalf("loss[%d]=%g want %g", j, l.At(0, j), want)
		}
	}
	if math.Abs(g.At(0, 0)+0.5) > 1e-12 {
		t.Fatalf("grad[0]=%g want -0.5", g.At(0, 0))
	}
	if math.IsNaN(l.At(0, 3)) || math.IsInf(l.At(0, 3), 0) {
		t.Fatal("large logit is not finite")
	}
}
