package params

import (
	"github.com/pkg/errors"
)

// Embed structs and globals
type Vocabulary struct {
	TokenToID map[string]int
	IDToToken []string
}

// Size returns |V|, zero for an uninitialized vocabulary.
func (v *Vocabulary) Size() int {
	if v == nil {
		return 0
	}
	return len(v.IDToToken)
}

// Globals initialized on first sample-source call.
var Vocab Vocabulary

type Hyperparams struct {
	// Sequence/vocabulary parameters
	PadToken  int // id used for padding, and the frame row-sum treated as padding
	VocabSize int // target |V| for the copy task
	SeqLen    int // copy-task sequence length

	// Model parameters
	DModel int // model width (Noam model_size)
	NMels  int // mel bins per frame (tt2)

	// Noam schedule
	Warmup int     // warmup steps
	Factor float64 // model-size scale factor

	// Adam
	AdamBeta1 float64
	AdamBeta2 float64
	AdamEps   float64

	// Loss parameters
	Smoothing          float64 // label smoothing coefficient
	LossWStop          float64 // weight of the stop-token loss
	PositiveStopWeight float64 // weight on the final stop frame
	GradClip           float64 // max global grad norm for tt2

	// Loop parameters
	BatchSize  int
	NBatches   int
	Epochs     int
	Debug      bool // enable periodic debug logs
	DebugEvery int  // print every N optimizer steps
}

var Config = Hyperparams{
	PadToken:  0,
	VocabSize: 11,
	SeqLen:    10,

	DModel: 512,
	NMels:  80,

	Warmup: 4000,
	Factor: 1.0,

	AdamBeta1: 0.9,
	AdamBeta2: 0.98,
	AdamEps:   1e-9,

	Smoothing:          0.1,
	LossWStop:          1.0,
	PositiveStopWeight: 5.0,
	GradClip:           1.0,

	BatchSize:  30,
	NBatches:   20,
	Epochs:     10,
	Debug:      false,
	DebugEvery: 100,
}

// Validate reports the first hyperparameter that cannot drive a run.
func (h *Hyperparams) Validate() error {
	if h == nil {
		return errors.New("params: config is nil")
	}
	if h.VocabSize < 2 {
		return errors.Errorf("params: vocab_size must be >= 2 (got %d)", h.VocabSize)
	}
	if h.PadToken < 0 || h.PadToken >= h.VocabSize {
		return errors.Errorf("params: pad_token %d outside [0, %d)", h.PadToken, h.VocabSize)
	}
	if h.SeqLen < 2 {
		return errors.Errorf("params: seq_len must be >= 2 (got %d)", h.SeqLen)
	}
	if h.DModel <= 0 {
		return errors.Errorf("params: d_model must be > 0 (got %d)", h.DModel)
	}
	if h.NMels <= 0 {
		return errors.Errorf("params: n_mels must be > 0 (got %d)", h.NMels)
	}
	if h.Warmup <= 0 {
		return errors.Errorf("params: warmup must be > 0 (got %d)", h.Warmup)
	}
	if h.Smoothing < 0 || h.Smoothing >= 1 {
		return errors.Errorf("params: smoothing must be in [0, 1) (got %g)", h.Smoothing)
	}
	if h.BatchSize <= 0 || h.NBatches <= 0 {
		return errors.Errorf("params: batch_size and nbatches must be > 0 (got %d, %d)", h.BatchSize, h.NBatches)
	}
	if h.DebugEvery <= 0 {
		h.DebugEvery = 100
	}
	return nil
}
