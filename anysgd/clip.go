package anysgd

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// DefaultClipThreshold is the gradient norm above which
// gradients are rescaled during training.
const DefaultClipThreshold = 5

// Clip rescales gradients whose global L2 norm exceeds a
// threshold, so that the norm becomes the threshold.
// Smaller gradients are left untouched.
type Clip struct {
	// Threshold is the maximum norm.
	// If it is 0, DefaultClipThreshold is used.
	Threshold float64
}

// Transform clips the gradient in place.
func (c *Clip) Transform(g anydiff.Grad) anydiff.Grad {
	threshold := valueOrDefault(c.Threshold, DefaultClipThreshold)
	norm := Norm(g)
	if norm > threshold {
		scaleGrad(g, threshold/norm)
	}
	return g
}

// Norm computes the L2 norm of all the vectors in g, as
// if they were one vector.
func Norm(g anydiff.Grad) float64 {
	var sum float64
	for _, vec := range g {
		sum += numericFloat(vec.Dot(vec))
	}
	return math.Sqrt(sum)
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic("unsupported numeric type")
	}
}
