package anyrnn

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A VecState is a State and/or StateGrad that is packed
// into a single vector, one row per present sequence.
type VecState struct {
	Vector     anyvec.Vector
	PresentMap PresentMap
}

// NewVecState creates a zero VecState with n present
// rows of the given width.
func NewVecState(c anyvec.Creator, n, width int) *VecState {
	p := make(PresentMap, n)
	for i := range p {
		p[i] = true
	}
	return &VecState{Vector: c.MakeVector(n * width), PresentMap: p}
}

// Present returns the PresentMap.
func (v *VecState) Present() PresentMap {
	return v.PresentMap
}

// Reduce generates a new *VecState with a subset of the
// rows in v.
func (v *VecState) Reduce(p PresentMap) State {
	width := v.rowWidth()
	var rows []anyvec.Vector
	var offset int
	for i, pres := range v.PresentMap {
		if !pres {
			if p[i] {
				panic("argument to Reduce must be a subset")
			}
			continue
		}
		if p[i] {
			rows = append(rows, v.Vector.Slice(offset, offset+width))
		}
		offset += width
	}
	return &VecState{Vector: v.join(rows), PresentMap: p}
}

// Expand generates a new *VecState with zero rows for
// the sequences in p which are missing from v.
func (v *VecState) Expand(p PresentMap) StateGrad {
	width := v.rowWidth()
	filler := v.Vector.Creator().MakeVector(width)
	var rows []anyvec.Vector
	var offset int
	for i, pres := range p {
		if v.PresentMap[i] {
			if !pres {
				panic("argument to Expand must be a superset")
			}
			rows = append(rows, v.Vector.Slice(offset, offset+width))
			offset += width
		} else if pres {
			rows = append(rows, filler)
		}
	}
	return &VecState{Vector: v.join(rows), PresentMap: p}
}

// PropagateRows adds the rows of v, treated as an
// upstream gradient, to the gradient of a variable which
// stores one row per sequence.
//
// All sequences must be present.
func (v *VecState) PropagateRows(va *anydiff.Var, g anydiff.Grad) {
	if v.PresentMap.NumPresent() != len(v.PresentMap) {
		panic("all sequences must be present")
	}
	if dest, ok := g[va]; ok {
		if dest.Len() != v.Vector.Len() {
			panic(fmt.Sprintf("expected %d components but got %d", dest.Len(),
				v.Vector.Len()))
		}
		dest.Add(v.Vector)
	}
}

func (v *VecState) rowWidth() int {
	n := v.PresentMap.NumPresent()
	if n == 0 {
		return 0
	}
	return v.Vector.Len() / n
}

func (v *VecState) join(rows []anyvec.Vector) anyvec.Vector {
	if len(rows) == 0 {
		return v.Vector.Creator().MakeVector(0)
	}
	return v.Vector.Creator().Concat(rows...)
}
