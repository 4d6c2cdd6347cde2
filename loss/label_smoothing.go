package loss

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LabelSmoothing is a sum-reduced KL divergence against a smoothed
// target distribution.
type LabelSmoothing struct {
	Size       int
	PaddingIdx int
	Smoothing  float64
	Confidence float64

	trueDist *mat.Dense
}

func NewLabelSmoothing(size, paddingIdx int, smoothing float64) *LabelSmoothing {
	return &LabelSmoothing{
		Size:       size,
		PaddingIdx: paddingIdx,
		Smoothing:  smoothing,
		Confidence: 1.0 - smoothing,
	}
}

// Forward takes (N x Size) log-probabilities and N target ids.
func (ls *LabelSmoothing) Forward(x *mat.Dense, target []int) float64 {
	n, size := x.Dims()
	if size != ls.Size {
		panic(fmt.Sprintf("LabelSmoothing: x has %d classes, want %d", size, ls.Size))
	}
	if len(target) != n {
		panic(fmt.Sprintf("LabelSmoothing: %d rows but %d targets", n, len(target)))
	}

	fill := 0.0
	if ls.Size > 2 {
		fill = ls.Smoothing / float64(ls.Size-2)
	}
	td := mat.NewDense(n, size, nil)
	for i, tgt := range target {
		if tgt == ls.PaddingIdx {
			continue // whole row stays zero
		}
		if tgt < 0 || tgt >= size {
			panic(fmt.Sprintf("LabelSmoothing: target %d outside [0, %d)", tgt, size))
		}
		for j := 0; j < size; j++ {
			td.Set(i, j, fill)
		}
		td.Set(i, tgt, ls.Confidence)
		td.Set(i, ls.PaddingIdx, 0)
	}
	ls.trueDist = td

	total := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < size; j++ {
			if t := td.At(i, j); t > 0 {
				total += t * (math.Log(t) - x.At(i, j))
			}
		}
	}
	return total
}

// TrueDist returns the smoothed distribution from the last Forward.
func (ls *LabelSmoothing) TrueDist() *mat.Dense { return ls.trueDist }

// Grad returns dLoss/dx for the last Forward, which is -TrueDist.
func (ls *LabelSmoothing) Grad() *mat.Dense {
	if ls.trueDist == nil {
		panic("LabelSmoothing: Grad before Forward")
	}
	r, c := ls.trueDist.Dims()
	g := mat.NewDense(r, c, nil)
	g.Scale(-1, ls.trueDist)
	return g
}
