package IO

import (
	"github.com/pkg/errors"
	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"

	"github.com/manningwu07/TTS/params"
)

// TextEncoder turns a transcript into token ids.
type TextEncoder interface {
	Encode(text string) ([]int, error)
	Vocab() map[string]int
}

// BPEEncoder wraps a tokenizer.json produced by the tokenizer trainer.
type BPEEncoder struct {
	tok *tk.Tokenizer
}

// LoadBPE loads a serialized tokenizer from tokPath.
func LoadBPE(tokPath string) (*BPEEncoder, error) {
	if !fileExists(tokPath) {
		return nil, errors.Errorf("tokenizer file %s not found", tokPath)
	}
	t, err := pretrained.FromFile(tokPath)
	if err != nil {
		return nil, errors.Wrapf(err, "load tokenizer %s", tokPath)
	}
	return &BPEEncoder{tok: t}, nil
}

// Encode encodes raw text into token IDs (without BOS/EOS).
func (e *BPEEncoder) Encode(text string) ([]int, error) {
	if e == nil || e.tok == nil {
		return nil, errors.New("tokenizer not initialized")
	}
	enc, err := e.tok.EncodeSingle(text, false)
	if err != nil {
		return nil, errors.Wrap(err, "encode")
	}
	out := make([]int, len(enc.Ids))
	for i, v := range enc.Ids {
		out[i] = int(v)
	}
	return out, nil
}

func (e *BPEEncoder) Vocab() map[string]int {
	return e.tok.GetVocab(true)
}

// VocabFromEncoder builds params.Vocabulary with IDToToken in id order.
func VocabFromEncoder(enc TextEncoder) (*params.Vocabulary, error) {
	vocab := enc.Vocab()
	if len(vocab) == 0 {
		return nil, errors.New("tokenizer has an empty vocabulary")
	}
	id2tok := make([]string, len(vocab))
	tok2id := make(map[string]int, len(vocab))
	for tok, id := range vocab {
		if id < 0 || id >= len(vocab) {
			return nil, errors.Errorf("token %q has id %d outside [0, %d)", tok, id, len(vocab))
		}
		tok2id[tok] = id
		id2tok[id] = tok
	}
	return &params.Vocabulary{TokenToID: tok2id, IDToToken: id2tok}, nil
}
