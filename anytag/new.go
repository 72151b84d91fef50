// Package anytag implements the recurrent taggers which
// produce per-token tag scores.
package anytag

import (
	"fmt"

	"github.com/unixpickle/anyner"
	"github.com/unixpickle/anyvec"
)

// Dims describes the sizes of a tagger.
type Dims struct {
	// Vocab is the number of word ids, including the
	// unknown word.
	Vocab int

	// Chars is the number of character ids.
	// It is only used by character taggers.
	Chars int

	Tags int
	Unit int

	Dropout bool
}

// New creates a randomized tagger for the variant.
func New(c anyvec.Creator, v anyner.Variant, d Dims) (anyner.Tagger, error) {
	if d.Vocab <= 0 || d.Tags <= 0 || d.Unit <= 0 {
		return nil, fmt.Errorf("new %s tagger: invalid dimensions %+v", v, d)
	}
	switch v {
	case anyner.LSTM:
		return NewWordTagger(c, d.Vocab, d.Tags, d.Unit, false, d.Dropout), nil
	case anyner.BiLSTM:
		return NewWordTagger(c, d.Vocab, d.Tags, d.Unit, true, d.Dropout), nil
	case anyner.CharBiLSTM:
		if d.Chars <= 0 {
			return nil, fmt.Errorf("new %s tagger: no characters", v)
		}
		return NewCharTagger(c, d.Vocab, d.Chars, d.Tags, d.Unit, d.Dropout), nil
	default:
		return nil, fmt.Errorf("new tagger: unsupported variant %s", v)
	}
}

// VariantOf returns the variant of a tagger created by
// New or deserialized from one.
func VariantOf(t anyner.Tagger) (anyner.Variant, error) {
	switch t := t.(type) {
	case *WordTagger:
		if t.Backward == nil {
			return anyner.LSTM, nil
		}
		return anyner.BiLSTM, nil
	case *CharTagger:
		return anyner.CharBiLSTM, nil
	}
	return 0, fmt.Errorf("variant of %T: unknown tagger", t)
}

// CheckVariant returns an error if t is not a tagger of
// variant v.
func CheckVariant(t anyner.Tagger, v anyner.Variant) error {
	actual, err := VariantOf(t)
	if err != nil {
		return err
	}
	if actual != v {
		return fmt.Errorf("tagger is a %s model but %s was requested", actual, v)
	}
	return nil
}

// WordEmbedding returns the word embedding of a tagger
// created by New, or nil for other taggers.
func WordEmbedding(t anyner.Tagger) *Embedding {
	switch t := t.(type) {
	case *WordTagger:
		return t.Embedding
	case *CharTagger:
		return t.Words
	}
	return nil
}
