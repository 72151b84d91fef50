// Package anysgd provides the gradient transformations
// used to update a tagger's parameters.
package anysgd

import "github.com/unixpickle/anydiff"

// Update applies the transformers to g, in order, and
// then takes a step of size rate against the transformed
// gradient.
//
// The gradient g is consumed by this call.
func Update(g anydiff.Grad, rate float64, ts ...Transformer) {
	for _, t := range ts {
		if t != nil {
			g = t.Transform(g)
		}
	}
	scaleGrad(g, -rate)
	g.AddToVars()
}

// Chain is a Transformer which applies several
// Transformers in order.
type Chain []Transformer

// Transform applies every Transformer in the chain.
func (c Chain) Transform(g anydiff.Grad) anydiff.Grad {
	for _, t := range c {
		g = t.Transform(g)
	}
	return g
}
