// Package anyrnn implements recurrent blocks which are
// evaluated over ragged batches of sequences.
package anyrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A PresentMap indicates which sequences of a batch are
// still running at a timestep.
// A true value indicates present.
type PresentMap []bool

// NumPresent counts the present sequences.
func (p PresentMap) NumPresent() int {
	var i int
	for _, x := range p {
		if x {
			i++
		}
	}
	return i
}

// A State stores a batch of internal Block states.
//
// A present sequence is one which has not yet terminated,
// so its state is still needed.
// When sequences of different lengths are evaluated
// together, the states of finished sequences are dropped
// from the batch with Reduce.
type State interface {
	// Present indicates which sequences have states in the
	// batch.
	Present() PresentMap

	// Reduce creates a copy of the State with a new
	// PresentMap, which must be a subset of Present().
	Reduce(PresentMap) State
}

// A VarState is a State which depends on variables, such
// as a custom start state.
type VarState interface {
	State
	Vars() anydiff.VarSet
}

// A StateGrad is an upstream gradient for a State.
type StateGrad interface {
	// Present indicates which sequences have upstream
	// gradients in the batch.
	Present() PresentMap

	// Expand inserts zero gradients so that every sequence
	// from the PresentMap is included.
	//
	// Expand is the inverse of State.Reduce().
	Expand(PresentMap) StateGrad
}

// A Block is a differentiable unit in an RNN.
// It receives an input/state batch and produces a batch
// of outputs and new states.
type Block interface {
	// Start produces the start state with a batch size of n.
	Start(n int) State

	// PropagateStart back-propagates through the start
	// state.
	PropagateStart(s StateGrad, g anydiff.Grad)

	// Step applies the block for a single timestep.
	Step(s State, in anyvec.Vector) Res
}

// A Res is the output of a Block for one timestep.
type Res interface {
	// State returns the output state batch.
	State() State

	// Output returns the packed Block outputs.
	Output() anyvec.Vector

	// Vars returns the variables upon which the output
	// depends.
	Vars() anydiff.VarSet

	// Propagate propagates the gradient for one timestep.
	// It takes an upstream vector u for the output, an
	// upstream StateGrad s for the output state, and the
	// output gradient to which partials should be added.
	//
	// It returns a downstream vector for the input and a
	// StateGrad for the previous timestep.
	//
	// The upstream state s may be nil, indicating a zero
	// upstream.
	// Upstream objects may be modified.
	Propagate(u anyvec.Vector, s StateGrad, g anydiff.Grad) (anyvec.Vector, StateGrad)
}
