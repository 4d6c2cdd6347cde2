package loss

import (
	"math"
	"testing"

	"github.com/manningwu07/TTS/optimizations"
	"github.com/manningwu07/TTS/utils"
	"gonum.org/v1/gonum/mat"
)

// linearGen maps (N x d) rows to (N x V) log-probs through W (d x V).
type linearGen struct {
	W *optimizations.Param

	lastX, lastLogp *mat.Dense
}

func (g *linearGen) Forward(x *mat.Dense) *mat.Dense {
	g.lastX = x
	g.lastLogp = utils.RowLogSoftmax(utils.Dot(x, g.W.Value))
	return g.lastLogp
}

func (g *linearGen) Backward(dY *mat.Dense) *mat.Dense {
	dz := utils.RowLogSoftmaxBackward(dY, g.lastLogp)
	g.W.Grad.Add(g.W.Grad, utils.Dot(g.lastX.T(), dz))
	return utils.ToDense(utils.Dot(dz, g.W.Value.T()))
}

type recordingModel struct{ got *mat.Dense }

func (m *recordingModel) Backward(dY *mat.Dense) *mat.Dense {
	m.got = dY
	return dY
}

func TestSimpleLossComputeConvergesOnToyExample(t *testing.T) {
	// 2 classes, 3 steps, every step targets class 1.
	gen := &linearGen{W: optimizations.NewParam("w", mat.NewDense(2, 2, nil))}
	x := mat.NewDense(3, 2, []float64{1, 0.5, 0.5, 1, 1, 1})
	y := []int{1, 1, 1}

	opt := optimizations.NewCustomAdam(
		optimizations.NewAdam([]*optimizations.Param{gen.W}, 0.1, 0.9, 0.999, 1e-8), nil)
	lc := NewSimpleLossCompute(gen, NewLabelSmoothing(2, 0, 0), opt)

	prev := math.Inf(1)
	first := 0.0
	for i := 0; i < 100; i++ {
		l := lc.Compute(x, y, 3)
		if i == 0 {
			first = l
		}
		if l >= prev {
			t.Fatalf("step %d: loss did not decrease (%g >= %g)", i, l, prev)
		}
		prev = l
	}
	if math.Abs(first-3*math.Log(2)) > 1e-12 {
		t.Fatalf("initial loss %g, want 3*ln2", first)
	}
	if prev > 0.05 {
		t.Fatalf("loss did not approach zero: %g", prev)
	}
	if gen.W.Grad.At(0, 0) != 0 {
		t.Fatal("gradients not cleared after step")
	}
}

func TestSimpleLossComputeWithoutOptimizer(t *testing.T) {
	gen := &linearGen{W: optimizations.NewParam("w", mat.NewDense(2, 3, nil))}
	model := &recordingModel{}
	lc := NewSimpleLossCompute(gen, NewLabelSmoothing(3, 0, 0), nil)
	lc.Model = model

	x := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	l := lc.Compute(x, []int{1, 2}, 2)
	if math.Abs(l-2*math.Log(3)) > 1e-12 {
		t.Fatalf("loss=%g want 2*ln3", l)
	}
	if gen.W.Grad.At(0, 1) == 0 {
		t.Fatal("expected accumulated gradient without optimizer")
	}
	if model.got == nil {
		t.Fatal("model did not receive the decoder-output gradient")
	}
	if r, c := model.got.Dims(); r != 2 || c != 2 {
		t.Fatalf("dX has shape %dx%d", r, c)
	}
}

func TestSimpleLossComputeDrivesNoam(t *testing.T) {
	gen := &linearGen{W: optimizations.NewParam("w", mat.NewDense(2, 2, nil))}
	noam := optimizations.NewNoamOpt(2, 1, 10,
		optimizations.NewAdam([]*optimizations.Param{gen.W}, 0, 0.9, 0.98, 1e-9))
	lc := NewSimpleLossCompute(gen, NewLabelSmoothing(2, 0, 0), noam)
	for i := 0; i < 3; i++ {
		lc.Compute(mat.NewDense(1, 2, []float64{1, 1}), []int{1}, 1)
	}
	if noam.Steps() != 3 || noam.Rate() != noam.RateAt(3) {
		t.Fatalf("noam not stepped: steps=%d rate=%g", noam.Steps(), noam.Rate())
	}
}

// toyFrameModel predicts mel = H*Wm and stop = H*Ws per example.
type toyFrameModel struct {
	H      []*mat.Dense
	Wm, Ws *optimizations.Param
}

func newToyFrameModel(d, nMels int, h []*mat.Dense) *toyFrameModel {
	return &toyFrameModel{
		H:  h,
		Wm: optimizations.NewParam("wm", mat.NewDense(d, nMels, nil)),
		Ws: optimizations.NewParam("ws", mat.NewDense(d, 1, nil)),
	}
}

func (m *toyFrameModel) Forward() (mel, stop []*mat.Dense) {
	for _, h := range m.H {
		mel = append(mel, utils.ToDense(utils.Dot(h, m.Wm.Value)))
		stop = append(stop, utils.ToDense(utils.Dot(h, m.Ws.Value)))
	}
	return mel, stop
}

func (m *toyFrameModel) Backward(dMel, dStop []*mat.Dense) {
	for b, h := range m.H {
		m.Wm.Grad.Add(m.Wm.Grad, utils.Dot(h.T(), dMel[b]))
		m.Ws.Grad.Add(m.Ws.Grad, utils.Dot(h.T(), dStop[b]))
	}
}

func (m *toyFrameModel) Parameters() []*optimizations.Param {
	return []*optimizations.Param{m.Wm, m.Ws}
}

func toyFrameData() (h, y, stops []*mat.Dense) {
	h = []*mat.Dense{mat.NewDense(3, 2, []float64{1, 0, 1, 0, 0, 1})}
	y = []*mat.Dense{mat.NewDense(3, 2, []float64{0.5, 0, 0.5, 0, 0, 0.5})}
	stops = []*mat.Dense{mat.NewDense(3, 1, []float64{0, 0, 1})}
	return h, y, stops
}

func TestTT2LossComputeReducesLoss(t *testing.T) {
	h, y, stops := toyFrameData()
	model := newToyFrameModel(2, 2, h)
	adam := optimizations.NewAdam(model.Parameters(), 0.05, 0.9, 0.999, 1e-8)
	lc := NewTT2LossCompute(MSELoss{}, optimizations.NewCustomAdam(adam, nil), 1.0, 5.0)

	var first, last float64
	for i := 0; i < 100; i++ {
		mel, stop := model.Forward()
		last = lc.Compute(mel, y, stop, stops, 2, model)
		if i == 0 {
			first = last
		}
	}
	if last >= first/2 {
		t.Fatalf("loss did not drop: first=%g last=%g", first, last)
	}
	if model.Wm.Grad.At(0, 0) != 0 {
		t.Fatal("gradients not cleared after step")
	}
}

func TestTT2LossComputeClipsGradients(t *testing.T) {
	h := []*mat.Dense{mat.NewDense(2, 1, []float64{100, 100})}
	y := []*mat.Dense{mat.NewDense(2, 1, []float64{50, 60})}
	stops := []*mat.Dense{mat.NewDense(2, 1, []float64{0, 1})}
	model := newToyFrameModel(1, 1, h)
	lc := NewTT2LossCompute(MSELoss{}, nil, 1.0, 5.0)

	mel, stop := model.Forward()
	lc.Compute(mel, y, stop, stops, 1, model)

	var grads []*mat.Dense
	for _, p := range model.Parameters() {
		grads = append(grads, p.Grad)
	}
	norm, _ := utils.ClipGrads(0, grads...)
	if norm > 1+1e-6 {
		t.Fatalf("grad norm %g exceeds clip", norm)
	}
	if norm == 0 {
		t.Fatal("expected non-zero gradient without an optimizer")
	}
}

func TestTT2StopLossWeightsLastFrame(t *testing.T) {
	stopX := []*mat.Dense{mat.NewDense(2, 1, []float64{0, 0})}
	stopY := []*mat.Dense{mat.NewDense(2, 1, []float64{0, 1})}

	plain := &TT2LossCompute{PositiveStopWeight: 1}
	weighted := &TT2LossCompute{PositiveStopWeight: 5}
	l1, g1 := plain.StopLoss(stopX, stopY)
	l5, g5 := weighted.StopLoss(stopX, stopY)

	if math.Abs(l1-math.Log(2)) > 1e-12 {
		t.Fatalf("unweighted stop loss %g want ln2", l1)
	}
	if math.Abs(l5-3*math.Log(2)) > 1e-12 {
		t.Fatalf("weighted stop loss %g want 3*ln2", l5)
	}
	if g5[0].At(0, 0) != g1[0].At(0, 0) {
		t.Fatal("non-final frame gradient must not be weighted")
	}
	if math.Abs(g5[0].At(1, 0)-5*g1[0].At(1, 0)) > 1e-12 {
		t.Fatal("final frame gradient must be scaled by the positive weight")
	}
}

func TestTT2LossComputeReturnsLossTimesNorm(t *testing.T) {
	h, y, stops := toyFrameData()
	model := newToyFrameModel(2, 2, h)
	lc := NewTT2LossCompute(MSELoss{}, nil, 0.5, 5.0)
	mel, stop := model.Forward()

	frame, _ := MSELoss{}.Loss(mel, y)
	stopLoss, _ := lc.StopLoss(stop, stops)
	want := (frame + 0.5*stopLoss) * 4
	if got := lc.Compute(mel, y, stop, stops, 4, model); math.Abs(got-want) > 1e-12 {
		t.Fatalf("Compute=%g want %g", got, want)
	}
}
