package batch

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Batch holds one training step's data with its masks. It is built once
// per iteration and not modified afterwards.
type Batch struct {
	Src     [][]int  // (B x S)
	SrcMask [][]bool // (B x S), true on non-pad tokens

	// Token targets (copy task).
	Trg  [][]int // trg[:, :-1], decoder input
	TrgY [][]int // trg[:, 1:], expected output

	// Frame targets (tt2). Each entry is (T x nMels) or (T x 1).
	TrgFrames  []*mat.Dense // frames[:, :-1]
	TrgYFrames []*mat.Dense // frames[:, 1:]
	TrgStops   []*mat.Dense // full stop labels
	StopTokens []*mat.Dense // stops[:, 1:], aligned with TrgYFrames

	TrgMask []Mask // per example, (T-1 x T-1)
	NTokens int    // non-pad target tokens/frames
}

// HasTarget reports whether the batch was built with targets.
func (b Batch) HasTarget() bool {
	return b.Trg != nil || b.TrgFrames != nil
}

// New builds a batch with token targets; trg == nil gives a source-only
// batch for inference.
func New(src, trg [][]int, pad int) Batch {
	b := Batch{Src: src, SrcMask: srcMask(src, pad)}
	if trg == nil {
		return b
	}
	if len(trg) != len(src) {
		panic(fmt.Sprintf("batch.New: %d sources but %d targets", len(src), len(trg)))
	}
	b.Trg = make([][]int, len(trg))
	b.TrgY = make([][]int, len(trg))
	for i, seq := range trg {
		if len(seq) < 2 {
			panic("batch.New: target sequences need at least 2 tokens")
		}
		b.Trg[i] = append([]int(nil), seq[:len(seq)-1]...)
		b.TrgY[i] = append([]int(nil), seq[1:]...)
		for _, id := range b.TrgY[i] {
			if id != pad {
				b.NTokens++
			}
		}
	}
	b.TrgMask = MakeStdMask(b.Trg, pad)
	return b
}

// NewTT2 builds a batch with mel-frame targets and stop labels.
func NewTT2(src [][]int, frames, stops []*mat.Dense, pad int) Batch {
	if len(frames) != len(src) || len(stops) != len(src) {
		panic(fmt.Sprintf("batch.NewTT2: %d sources, %d frame sets, %d stop sets",
			len(src), len(frames), len(stops)))
	}
	b := Batch{
		Src:        src,
		SrcMask:    srcMask(src, pad),
		TrgFrames:  make([]*mat.Dense, len(frames)),
		TrgYFrames: make([]*mat.Dense, len(frames)),
		TrgStops:   stops,
		StopTokens: make([]*mat.Dense, len(stops)),
	}
	for i, f := range frames {
		T, nMels := f.Dims()
		if T < 2 {
			panic("batch.NewTT2: frame targets need at least 2 frames")
		}
		if sr, sc := stops[i].Dims(); sr != T || sc != 1 {
			panic(fmt.Sprintf("batch.NewTT2: stops are %dx%d, want %dx1", sr, sc, T))
		}
		b.TrgFrames[i] = mat.DenseCopyOf(f.Slice(0, T-1, 0, nMels))
		b.TrgYFrames[i] = mat.DenseCopyOf(f.Slice(1, T, 0, nMels))
		b.StopTokens[i] = mat.DenseCopyOf(stops[i].Slice(1, T, 0, 1))
		for _, keep := range FramePadMask(b.TrgYFrames[i], pad) {
			if keep {
				b.NTokens++
			}
		}
	}
	b.TrgMask = MakeStdFrameMask(b.TrgFrames, pad)
	return b
}

// Rebatch takes time-major (T x B) sequences, as produced by column
// iterators, and builds a batch-major Batch.
func Rebatch(pad int, src, trg [][]int) Batch {
	return New(transpose(src), transpose(trg), pad)
}

func srcMask(src [][]int, pad int) [][]bool {
	out := make([][]bool, len(src))
	for i, seq := range src {
		out[i] = PadMask(seq, pad)
	}
	return out
}

func transpose(m [][]int) [][]int {
	if m == nil {
		return nil
	}
	if len(m) == 0 {
		return [][]int{}
	}
	out := make([][]int, len(m[0]))
	for j := range out {
		out[j] = make([]int, len(m))
		for i := range m {
			out[j][i] = m[i][j]
		}
	}
	return out
}

// FlatTrgY returns TrgY flattened row by row, the target order a
// generator's (B*(T-1) x V) output uses.
func (b Batch) FlatTrgY() []int {
	var out []int
	for _, row := range b.TrgY {
		out = append(out, row...)
	}
	return out
}
