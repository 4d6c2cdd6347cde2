package IO

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FrameSpec controls how token ids become mel-like frames for the tt2
// copy task: every token is held for FramesPerToken frames as a gaussian
// bump centered on a bin proportional to its id.
type FrameSpec struct {
	NMels          int
	FramesPerToken int
	Width          float64 // bump std-dev in bins
	Noise          float64 // std-dev of additive noise; 0 disables
}

func DefaultFrameSpec(nMels int) FrameSpec {
	return FrameSpec{NMels: nMels, FramesPerToken: 2, Width: 1.5}
}

// tokenFrame renders one frame for id out of vocabSize ids.
func (fs FrameSpec) tokenFrame(id, vocabSize int) []float64 {
	center := float64(id) * float64(fs.NMels-1) / math.Max(float64(vocabSize-1), 1)
	out := make([]float64, fs.NMels)
	for k := range out {
		d := float64(k) - center
		out[k] = math.Exp(-d * d / (2 * fs.Width * fs.Width))
	}
	return out
}

// PadFrames renders src (ids, already padded with pad) into a padded
// frame batch. Tokens equal to pad produce no frames; padding frames are
// all zeros and carry stop label 1.
func (fs FrameSpec) PadFrames(src [][]int, pad, vocabSize int, rng *rand.Rand) ([]*mat.Dense, []*mat.Dense) {
	var noise *distuv.Normal
	if fs.Noise > 0 && rng != nil {
		noise = &distuv.Normal{Mu: 0, Sigma: fs.Noise, Src: rng}
	}

	rows := make([][][]float64, len(src))
	maxT := 0
	for b, seq := range src {
		for _, id := range seq {
			if id == pad {
				continue
			}
			frame := fs.tokenFrame(id, vocabSize)
			for r := 0; r < fs.FramesPerToken; r++ {
				f := append([]float64(nil), frame...)
				if noise != nil {
					for k := range f {
						f[k] += noise.Rand()
					}
				}
				rows[b] = append(rows[b], f)
			}
		}
		if len(rows[b]) > maxT {
			maxT = len(rows[b])
		}
	}

	tgt := make([]*mat.Dense, len(src))
	stops := make([]*mat.Dense, len(src))
	for b := range src {
		tgt[b] = mat.NewDense(maxT, fs.NMels, nil)
		stops[b] = mat.NewDense(maxT, 1, nil)
		n := len(rows[b])
		for t := 0; t < maxT; t++ {
			if t < n {
				tgt[b].SetRow(t, rows[b][t])
			}
			if t >= n-1 {
				stops[b].Set(t, 0, 1)
			}
		}
	}
	return tgt, stops
}

// PadIDs right-pads every sequence to the longest one.
func PadIDs(seqs [][]int, pad int) [][]int {
	maxLen := 0
	for _, s := range seqs {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	out := make([][]int, len(seqs))
	for i, s := range seqs {
		row := make([]int, maxLen)
		for j := range row {
			row[j] = pad
		}
		copy(row, s)
		out[i] = row
	}
	return out
}
