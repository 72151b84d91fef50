package anysgd

import "github.com/unixpickle/anydiff"

// A ConstRater is a Rater which always returns the same
// constant learning rate.
type ConstRater float64

// Rate returns float64(c).
func (c ConstRater) Rate(epoch float64) float64 {
	return float64(c)
}

func zeroGrad(g anydiff.Grad) anydiff.Grad {
	res := anydiff.Grad{}
	for v, vec := range g {
		res[v] = vec.Creator().MakeVector(vec.Len())
	}
	return res
}

func gradMatches(vars []*anydiff.Var, g anydiff.Grad) bool {
	if len(vars) != len(g) {
		return false
	}
	for _, v := range vars {
		if _, ok := g[v]; !ok {
			return false
		}
	}
	return true
}

func scaleGrad(g anydiff.Grad, s float64) {
	for _, vec := range g {
		vec.Scale(vec.Creator().MakeNumeric(s))
	}
}

func valueOrDefault(value, def float64) float64 {
	if value == 0 {
		return def
	}
	return value
}
