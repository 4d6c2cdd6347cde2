package IO

import (
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/manningwu07/TTS/params"
)

const (
	PadSymbol = "<pad>"
	EOSSymbol = "<eos>"
)

var phonemes = []string{
	"AA", "AE", "AH", "AO", "AW", "AY", "B", "CH", "D", "DH",
	"EH", "ER", "EY", "F", "G", "HH", "IH", "IY", "JH", "K",
	"L", "M", "N", "NG", "OW", "OY", "P", "R", "S", "SH",
	"T", "TH", "UH", "UW", "V", "W", "Y", "Z", "ZH",
}

// PhonemeVocab is <pad>, <eos>, then the ARPAbet inventory, so the pad
// id is 0 and the eos id is 1.
func PhonemeVocab() *params.Vocabulary {
	v := &params.Vocabulary{TokenToID: map[string]int{}}
	for _, tok := range append([]string{PadSymbol, EOSSymbol}, phonemes...) {
		v.TokenToID[tok] = len(v.IDToToken)
		v.IDToToken = append(v.IDToToken, tok)
	}
	return v
}

// SyntheticSource produces phoneme sequences and the frames that copy
// them. Non-random batches are a pure function of (start, example
// index), so sequential sampling walks a fixed virtual corpus.
type SyntheticSource struct {
	MinLen, MaxLen int
	Frames         FrameSpec
	Pad            int

	rng *rand.Rand
}

func NewSyntheticSource(seed uint64, nMels int) *SyntheticSource {
	return &SyntheticSource{
		MinLen: 3,
		MaxLen: 8,
		Frames: DefaultFrameSpec(nMels),
		Pad:    params.Config.PadToken,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *SyntheticSource) SampleBatch(batchSize, start int, vocab *params.Vocabulary, random bool) (SampleBatch, error) {
	if vocab == nil || vocab.Size() == 0 {
		vocab = PhonemeVocab()
	}
	eos, okEOS := vocab.TokenToID[EOSSymbol]
	first, okFirst := vocab.TokenToID[phonemes[0]]
	if !okEOS || !okFirst || first+len(phonemes) > vocab.Size() {
		return SampleBatch{}, errors.New("synthetic source: vocabulary is not a phoneme vocabulary")
	}

	seqs := make([][]int, batchSize)
	for i := range seqs {
		rng := s.rng
		if !random {
			rng = rand.New(rand.NewPCG(uint64(start+i), 0))
		}
		n := s.MinLen + rng.IntN(s.MaxLen-s.MinLen+1)
		seq := make([]int, 0, n+1)
		for j := 0; j < n; j++ {
			seq = append(seq, first+rng.IntN(len(phonemes)))
		}
		seqs[i] = append(seq, eos)
	}

	src := PadIDs(seqs, s.Pad)
	var noiseRng *rand.Rand
	if random {
		noiseRng = s.rng
	}
	tgt, stops := s.Frames.PadFrames(src, s.Pad, vocab.Size(), noiseRng)
	return SampleBatch{Src: src, Tgt: tgt, TgtStops: stops, Vocab: vocab}, nil
}
