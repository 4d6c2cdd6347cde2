package IO

import (
	"github.com/manningwu07/TTS/params"
	"gonum.org/v1/gonum/mat"
)

// SampleBatch is one batch of raw tt2 training data: phoneme/token ids,
// their mel frames and per-frame stop labels. Every example in a batch
// is padded to the same length.
type SampleBatch struct {
	Src      [][]int      // (B x S) token ids
	Tgt      []*mat.Dense // B x (T x nMels)
	TgtStops []*mat.Dense // B x (T x 1), 1 from the last real frame on
	Vocab    *params.Vocabulary
}

// SampleSource hands out sample batches. start selects the first example
// for deterministic sampling; random ignores it and draws fresh examples.
// A non-nil vocab is reused so ids stay consistent across calls.
type SampleSource interface {
	SampleBatch(batchSize, start int, vocab *params.Vocabulary, random bool) (SampleBatch, error)
}
