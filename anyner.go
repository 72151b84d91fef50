// Package anyner trains recurrent sequence taggers for
// named-entity recognition.
//
// The root package defines the data model shared by the
// sub-packages: ragged batches of examples, the rare-word
// regularizer, per-batch recurrent start states, and the
// loss/accuracy aggregation used for both training and
// evaluation.
// Concrete taggers live in anytag, and the training loop
// lives in anytrain.
package anyner

import "fmt"

// An Example is one labeled sentence.
//
// Tokens and Labels have one entry per word.
// Chars is nil for word-level data; otherwise, it holds
// one character-id sequence per word.
type Example struct {
	Tokens []int
	Chars  [][]int
	Labels []int
}

// Validate checks the per-example length invariants.
// If useChars is true, the example must carry one char
// sequence per token.
func (e *Example) Validate(useChars bool) error {
	if len(e.Tokens) != len(e.Labels) {
		return &DataContractViolation{
			Reason: fmt.Sprintf("%d tokens but %d labels", len(e.Tokens), len(e.Labels)),
		}
	}
	if useChars && len(e.Chars) != len(e.Tokens) {
		return &DataContractViolation{
			Reason: fmt.Sprintf("%d tokens but %d char sequences", len(e.Tokens),
				len(e.Chars)),
		}
	}
	return nil
}

// A DataContractViolation is returned when an example
// breaks the length invariants expected by the trainer.
//
// It indicates a bug in the data layer and is never
// recovered from.
type DataContractViolation struct {
	// Index is the example's position in its batch.
	Index int

	Reason string
}

// Error returns a description of the violation.
func (d *DataContractViolation) Error() string {
	return fmt.Sprintf("data contract violation: example %d: %s", d.Index, d.Reason)
}

// A Batch is an ordered list of examples.
//
// Sequences in a batch are never padded; each one keeps
// its true length.
type Batch struct {
	Examples []*Example
}

// NewBatch creates a batch after validating every example.
func NewBatch(examples []*Example, useChars bool) (*Batch, error) {
	for i, e := range examples {
		if err := e.Validate(useChars); err != nil {
			err.(*DataContractViolation).Index = i
			return nil, err
		}
	}
	return &Batch{Examples: examples}, nil
}

// Len returns the number of examples.
func (b *Batch) Len() int {
	return len(b.Examples)
}

// NumTokens returns the total number of tokens.
func (b *Batch) NumTokens() int {
	var n int
	for _, e := range b.Examples {
		n += len(e.Tokens)
	}
	return n
}

// Tokens returns the token sequences.
func (b *Batch) Tokens() [][]int {
	res := make([][]int, len(b.Examples))
	for i, e := range b.Examples {
		res[i] = e.Tokens
	}
	return res
}

// Chars returns the character sequences.
// The result is nil if no example has characters.
func (b *Batch) Chars() [][][]int {
	var res [][][]int
	for i, e := range b.Examples {
		if e.Chars != nil && res == nil {
			res = make([][][]int, len(b.Examples))
		}
		if res != nil {
			res[i] = e.Chars
		}
	}
	return res
}

// Labels returns the label sequences.
func (b *Batch) Labels() [][]int {
	res := make([][]int, len(b.Examples))
	for i, e := range b.Examples {
		res[i] = e.Labels
	}
	return res
}
