package anysgd

import (
	"encoding"

	"github.com/unixpickle/anydiff"
)

// A Transformer transforms gradients.
// For example, pre-conditioning could be implemented as a
// transformer.
//
// After its first call, a Transformer expects to see
// gradients of the same form (i.e. containing the same
// variables).
//
// A Transformer may modify its own input and return the
// same gradient as an output.
// However, a Transformer should not retain a reference to
// its input after Transform returns.
type Transformer interface {
	Transform(g anydiff.Grad) anydiff.Grad
}

// TransformMarshaler is a Transformer with support for
// binary marshalling and unmarshalling.
type TransformMarshaler interface {
	Transformer
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// A Rater determines the learning rate given the epoch
// number.
// An "epoch" is a full pass over the training set, so
// fractional epochs are possible.
type Rater interface {
	Rate(epoch float64) float64
}
