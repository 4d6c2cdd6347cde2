package optimizations

import (
	"github.com/manningwu07/TTS/utils"
	"gonum.org/v1/gonum/mat"
)

// ClipGradNorm rescales the gradients of ps in place so that their
// global L2 norm is at most maxNorm. It returns the norm before clipping.
func ClipGradNorm(ps []*Param, maxNorm float64) float64 {
	grads := make([]*mat.Dense, 0, len(ps))
	for _, p := range ps {
		grads = append(grads, p.Grad)
	}
	norm, s := utils.ClipGrads(maxNorm, grads...)
	if s < 1.0 {
		utils.Debugf("clip: grad norm %.4f scaled by %.4f", norm, s)
	}
	return norm
}
