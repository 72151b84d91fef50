package anyner

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// State is the (hidden, cell) pair fed into the first
// step of a tagger's recurrent encoder.
//
// Both vectors are packed with shape (1, N, D), where N
// is the batch size and D is the recurrent width.
// A State is built for one batch and then thrown away.
type State struct {
	Hidden *anydiff.Var
	Cell   *anydiff.Var
	Shape  [3]int
}

// InitState creates a zero State for n sequences with the
// given recurrent width.
//
// The vectors are variables so that gradients can flow
// into them, but they are never part of a model's
// parameters and are never trained.
func InitState(c anyvec.Creator, n, width int) *State {
	if n < 0 || width < 0 {
		panic(fmt.Sprintf("invalid state shape (1, %d, %d)", n, width))
	}
	return &State{
		Hidden: anydiff.NewVar(c.MakeVector(n * width)),
		Cell:   anydiff.NewVar(c.MakeVector(n * width)),
		Shape:  [3]int{1, n, width},
	}
}

// BatchSize returns N.
func (s *State) BatchSize() int {
	return s.Shape[1]
}

// Width returns D.
func (s *State) Width() int {
	return s.Shape[2]
}

// Row returns the hidden and cell vectors for the i-th
// sequence in the batch.
func (s *State) Row(i int) (hidden, cell anydiff.Res) {
	if i < 0 || i >= s.BatchSize() {
		panic(fmt.Sprintf("row %d out of range [0, %d)", i, s.BatchSize()))
	}
	d := s.Width()
	return anydiff.Slice(s.Hidden, i*d, (i+1)*d), anydiff.Slice(s.Cell, i*d, (i+1)*d)
}
