package batch

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/TTS/IO"
	"github.com/manningwu07/TTS/params"
)

// CopySeqLen is the sequence length of the synthetic copy task.
const CopySeqLen = 10

// Iter yields batches one at a time.
type Iter struct {
	next func() (Batch, bool)
}

// Next returns the next batch, or false once the iterator is exhausted.
func (it *Iter) Next() (Batch, bool) {
	if it == nil || it.next == nil {
		return Batch{}, false
	}
	b, ok := it.next()
	if !ok {
		it.next = nil
	}
	return b, ok
}

// DataGen generates nbatches random batches for a src-tgt copy task.
// Every sequence starts with 1; the rest is uniform in [1, V). Pad is 0.
func DataGen(rng *rand.Rand, V, batchSize, nbatches int) *Iter {
	if V < 2 {
		panic("batch.DataGen: V must be >= 2")
	}
	i := 0
	return &Iter{next: func() (Batch, bool) {
		if i >= nbatches {
			return Batch{}, false
		}
		i++
		data := make([][]int, batchSize)
		for b := range data {
			row := make([]int, CopySeqLen)
			row[0] = 1
			for j := 1; j < CopySeqLen; j++ {
				row[j] = 1 + rng.IntN(V-1)
			}
			data[b] = row
		}
		return New(data, data, 0), true
	}}
}

// Prepared holds parallel per-batch arrays for the tt2 copy task.
type Prepared struct {
	Src      [][][]int
	Tgt      [][]*mat.Dense
	TgtStops [][]*mat.Dense
	Vocab    *params.Vocabulary
}

func (p *Prepared) append(sb IO.SampleBatch) {
	p.Src = append(p.Src, sb.Src)
	p.Tgt = append(p.Tgt, sb.Tgt)
	p.TgtStops = append(p.TgtStops, sb.TgtStops)
}

// DataPrepareTT2 samples nbatches batches from source.
//
// sequential: batch i starts at example i*batchSize.
// otherwise: the first batch is repeated nbatches times, or replaced by
// a fresh sample for every batch when random is set.
//
// The vocabulary returned by each sample is passed to the next call in
// both modes.
func DataPrepareTT2(source IO.SampleSource, batchSize, nbatches int, random, sequential bool) (*Prepared, error) {
	if batchSize <= 0 || nbatches <= 0 {
		return nil, errors.Errorf("batch: batch size and nbatches must be > 0 (got %d, %d)", batchSize, nbatches)
	}
	p := &Prepared{}

	if sequential {
		for i := 0; i < nbatches; i++ {
			sb, err := source.SampleBatch(batchSize, i*batchSize, p.Vocab, random)
			if err != nil {
				return nil, errors.Wrapf(err, "sample batch %d", i)
			}
			p.append(sb)
			p.Vocab = sb.Vocab
		}
		return p, nil
	}

	sb, err := source.SampleBatch(batchSize, 0, p.Vocab, random)
	if err != nil {
		return nil, errors.Wrap(err, "sample batch 0")
	}
	p.append(sb)
	p.Vocab = sb.Vocab
	for i := 1; i < nbatches; i++ {
		if random {
			sb, err = source.SampleBatch(batchSize, 0, p.Vocab, random)
			if err != nil {
				return nil, errors.Wrapf(err, "sample batch %d", i)
			}
			p.Vocab = sb.Vocab
		}
		p.append(sb)
	}
	return p, nil
}

// DataGenTT2 yields one Batch per aligned (src, tgt, stops) triple,
// stopping at the shortest of the three arrays.
func DataGenTT2(p *Prepared, pad int) *Iter {
	n := min(len(p.Src), len(p.Tgt), len(p.TgtStops))
	i := 0
	return &Iter{next: func() (Batch, bool) {
		if i >= n {
			return Batch{}, false
		}
		b := NewTT2(p.Src[i], p.Tgt[i], p.TgtStops[i], pad)
		i++
		return b, true
	}}
}
