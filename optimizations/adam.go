package optimizations

import (
	"math"

	"github.com/manningwu07/TTS/utils"
	"gonum.org/v1/gonum/mat"
)

// Param is a trainable tensor together with its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func NewParam(name string, value *mat.Dense) *Param {
	return &Param{Name: name, Value: value, Grad: utils.ZerosLike(value)}
}

// ParamGroup shares one learning rate across its params. LR is written
// by the schedulers before every update.
type ParamGroup struct {
	Params []*Param
	LR     float64
}

// Optimizer updates params from their Grad.
type Optimizer interface {
	Step()
	ZeroGrad()
	ParamGroups() []*ParamGroup
}

// Stepper is the optimizer wrapper the loss computes drive.
type Stepper interface {
	Step(loss float64)
	ZeroGrad()
	Rate() float64
}

type adamState struct {
	m, v *mat.Dense
	t    int
}

// Adam is AdamW with bias correction; WeightDecay 0 gives plain Adam.
type Adam struct {
	Beta1, Beta2, Eps float64
	WeightDecay       float64

	groups []*ParamGroup
	state  map[*Param]*adamState
}

func NewAdam(params []*Param, lr, beta1, beta2, eps float64) *Adam {
	return &Adam{
		Beta1:  beta1,
		Beta2:  beta2,
		Eps:    eps,
		groups: []*ParamGroup{{Params: params, LR: lr}},
		state:  make(map[*Param]*adamState, len(params)),
	}
}

// AddParamGroup registers params that train under their own LR.
func (a *Adam) AddParamGroup(params []*Param, lr float64) {
	a.groups = append(a.groups, &ParamGroup{Params: params, LR: lr})
}

func (a *Adam) ParamGroups() []*ParamGroup { return a.groups }

func (a *Adam) Step() {
	for _, g := range a.groups {
		for _, p := range g.Params {
			st, ok := a.state[p]
			if !ok {
				st = &adamState{m: utils.ZerosLike(p.Value), v: utils.ZerosLike(p.Value)}
				a.state[p] = st
			}
			st.t++
			AdamUpdateInPlace(p.Value, p.Grad, st.m, st.v, st.t,
				g.LR, a.Beta1, a.Beta2, a.Eps, a.WeightDecay)
		}
	}
}

func (a *Adam) ZeroGrad() {
	for _, g := range a.groups {
		for _, p := range g.Params {
			p.Grad.Zero()
		}
	}
}

// p -= lr * (mhat/(sqrt(vhat)+eps) + wd * p) with bias correction (AdamW).
func AdamUpdateInPlace(
	p, g, m, v *mat.Dense,
	t int,
	lr, beta1, beta2, eps, weightDecay float64,
) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic("adamUpdateInPlace: grad shape mismatch")
	}
	if mr, mc := m.Dims(); mr != pr || mc != pc {
		panic("adamUpdateInPlace: m shape mismatch")
	}
	if vr, vc := v.Dims(); vr != pr || vc != pc {
		panic("adamUpdateInPlace: v shape mismatch")
	}
	b1t := math.Pow(beta1, float64(t))
	b2t := math.Pow(beta2, float64(t))
	c1 := 1.0 / (1.0 - b1t)
	c2 := 1.0 / (1.0 - b2t)
	for i := 0; i < pr; i++ {
		for j := 0; j < pc; j++ {
			gij := g.At(i, j)
			mij := beta1*m.At(i, j) + (1.0-beta1)*gij
			vij := beta2*v.At(i, j) + (1.0-beta2)*gij*gij
			mhat := mij * c1
			vhat := vij * c2
			denom := math.Sqrt(vhat) + eps
			wdTerm := weightDecay * p.At(i, j)
			update := mhat/denom + wdTerm
			m.Set(i, j, mij)
			v.Set(i, j, vij)
			p.Set(i, j, p.At(i, j)-lr*update)
		}
	}
}
