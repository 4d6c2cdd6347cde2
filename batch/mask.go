package batch

import (
	"github.com/manningwu07/TTS/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Mask is a boolean attention mask; true means the position may be
// attended to.
type Mask [][]bool

func NewMask(r, c int) Mask {
	m := make(Mask, r)
	for i := range m {
		m[i] = make([]bool, c)
	}
	return m
}

func (m Mask) Dims() (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

func (m Mask) At(i, j int) bool { return m[i][j] }

// And returns the elementwise conjunction of m and o.
func (m Mask) And(o Mask) Mask {
	r, c := m.Dims()
	if or, oc := o.Dims(); or != r || oc != c {
		panic("batch: mask shape mismatch")
	}
	out := NewMask(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i][j] = m[i][j] && o[i][j]
		}
	}
	return out
}

// Additive converts m to the 0 / -1e30 form added to attention scores.
func (m Mask) Additive() *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !m[i][j] {
				out.Set(i, j, -1e30)
			}
		}
	}
	return out
}

// SubsequentMask masks out subsequent positions: the (n x n) result is
// true exactly where col <= row.
func SubsequentMask(n int) Mask {
	causal := utils.CausalMask(n)
	m := NewMask(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m[i][j] = causal.At(i, j) == 0
		}
	}
	return m
}

// PadMask is true where seq differs from pad.
func PadMask(seq []int, pad int) []bool {
	out := make([]bool, len(seq))
	for i, id := range seq {
		out[i] = id != pad
	}
	return out
}

// FramePadMask treats a frame as padding when its bins sum to pad.
func FramePadMask(frames *mat.Dense, pad int) []bool {
	r, _ := frames.Dims()
	out := make([]bool, r)
	for i := 0; i < r; i++ {
		out[i] = floats.Sum(frames.RawRowView(i)) != float64(pad)
	}
	return out
}

// MakeStdMask hides padding and future words for every target row.
func MakeStdMask(trg [][]int, pad int) []Mask {
	out := make([]Mask, len(trg))
	for b, seq := range trg {
		out[b] = stdMask(PadMask(seq, pad))
	}
	return out
}

// MakeStdFrameMask is MakeStdMask for (T x nMels) frame targets.
func MakeStdFrameMask(trg []*mat.Dense, pad int) []Mask {
	out := make([]Mask, len(trg))
	for b, frames := range trg {
		out[b] = stdMask(FramePadMask(frames, pad))
	}
	return out
}

func stdMask(keep []bool) Mask {
	n := len(keep)
	padMask := NewMask(n, n)
	for i := 0; i < n; i++ {
		copy(padMask[i], keep)
	}
	return padMask.And(SubsequentMask(n))
}
