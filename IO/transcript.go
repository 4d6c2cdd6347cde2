package IO

import (
	"bufio"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/manningwu07/TTS/params"
)

// TranscriptSource encodes transcript lines and renders the frames that
// copy them, giving the tt2 loop real text with a known target.
type TranscriptSource struct {
	Lines   []string
	Encoder TextEncoder
	Frames  FrameSpec
	Pad     int

	rng *rand.Rand
}

func NewTranscriptSource(lines []string, enc TextEncoder, nMels int, seed uint64) *TranscriptSource {
	return &TranscriptSource{
		Lines:   lines,
		Encoder: enc,
		Frames:  DefaultFrameSpec(nMels),
		Pad:     params.Config.PadToken,
		rng:     rand.New(rand.NewPCG(seed, seed+1)),
	}
}

func (s *TranscriptSource) SampleBatch(batchSize, start int, vocab *params.Vocabulary, random bool) (SampleBatch, error) {
	if len(s.Lines) == 0 {
		return SampleBatch{}, errors.New("transcript source: no lines")
	}
	if vocab == nil || vocab.Size() == 0 {
		v, err := VocabFromEncoder(s.Encoder)
		if err != nil {
			return SampleBatch{}, errors.Wrap(err, "transcript source")
		}
		vocab = v
	}

	seqs := make([][]int, batchSize)
	for i := range seqs {
		idx := (start + i) % len(s.Lines)
		if random {
			idx = s.rng.IntN(len(s.Lines))
		}
		ids, err := s.Encoder.Encode(s.Lines[idx])
		if err != nil {
			return SampleBatch{}, errors.Wrapf(err, "line %d", idx)
		}
		if len(ids) == 0 {
			return SampleBatch{}, errors.Errorf("line %d encodes to no tokens", idx)
		}
		seqs[i] = ids
	}

	src := PadIDs(seqs, s.Pad)
	tgt, stops := s.Frames.PadFrames(src, s.Pad, vocab.Size(), nil)
	return SampleBatch{Src: src, Tgt: tgt, TgtStops: stops, Vocab: vocab}, nil
}

// ReadLines reads up to limit non-empty lines (limit <= 0 reads all).
func ReadLines(p string, limit int) ([]string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrap(err, "open transcripts")
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read transcripts")
	}
	return out, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
