package anyner

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
)

// A Parameterizer is anything with learnable variables.
//
// The parameters of a Parameterizer must be in the same
// order every time Parameters() is called.
type Parameterizer interface {
	Parameters() []*anydiff.Var
}

// A Tagger maps ragged token sequences to per-token class
// scores.
//
// Tag returns a batch with one score sequence per token
// sequence.
// Sequence i is present for len(tokens[i]) timesteps, and
// has NumTags() scores per timestep.
// Sequences are never padded.
//
// The start state must have one row per sequence and a
// width of StateWidth().
// The chars argument is ignored by taggers which do not
// use characters.
// When train is false, Tag must be deterministic.
type Tagger interface {
	Parameterizer

	StateWidth() int
	NumTags() int
	Tag(s *State, tokens [][]int, chars [][][]int, train bool) anyseq.Seq
}

// A Variant selects a tagger architecture.
type Variant int

// These are the supported tagger architectures.
const (
	LSTM Variant = iota
	BiLSTM
	CharBiLSTM
)

// ParseVariant parses a variant name as it appears in
// run configurations.
func ParseVariant(name string) (Variant, error) {
	switch name {
	case "lstm":
		return LSTM, nil
	case "bilstm":
		return BiLSTM, nil
	case "charlstm":
		return CharBiLSTM, nil
	default:
		return 0, fmt.Errorf("unknown model type: %q", name)
	}
}

// String returns the configuration name of v.
func (v Variant) String() string {
	switch v {
	case LSTM:
		return "lstm"
	case BiLSTM:
		return "bilstm"
	case CharBiLSTM:
		return "charlstm"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// UsesChars checks if the variant consumes character
// sequences.
func (v Variant) UsesChars() bool {
	return v == CharBiLSTM
}

// ClipsGradients reports whether gradient clipping is on
// by default for the variant.
//
// The character variant has historically trained without
// clipping; configurations may override this.
func (v Variant) ClipsGradients() bool {
	return v != CharBiLSTM
}
