package anysgd

import (
	"errors"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const (
	adamDefaultDecayRate1 = 0.9
	adamDefaultDecayRate2 = 0.999
	adamDefaultDamping    = 1e-8
)

// DefaultAdamRate is the step size conventionally paired
// with Adam.
const DefaultAdamRate = 0.001

// Adam implements the adaptive moments SGD technique
// described in https://arxiv.org/pdf/1412.6980.pdf.
type Adam struct {
	// These are decay rates for the first and second
	// moments of the gradient.
	// If these are 0, defaults as suggested in the
	// original Adam paper are used.
	DecayRate1, DecayRate2 float64

	// Damping is used to prevent divisions by zero.
	// This should be very small.
	// If it is 0, a default is used.
	Damping float64

	// Vars lists the variables in the order that their
	// moments are marshalled.
	// It is needed for MarshalBinary and UnmarshalBinary,
	// and should be set before the first Transform.
	Vars []*anydiff.Var

	firstMoment  anydiff.Grad
	secondMoment anydiff.Grad
	iteration    float64
}

// Transform replaces the gradient with the bias-corrected
// ratio of its running moments.
//
// If Vars is set, the gradient must hold exactly those
// variables, so that moments are never stored for
// variables that MarshalBinary would skip.
//
// This is not thread-safe.
func (a *Adam) Transform(g anydiff.Grad) anydiff.Grad {
	if a.Vars != nil && !gradMatches(a.Vars, g) {
		panic(errVarsGradMismatch)
	}
	if a.firstMoment == nil {
		a.firstMoment = zeroGrad(g)
		a.secondMoment = zeroGrad(g)
	}

	a.iteration++
	rate1, rate2 := a.decayRate(1), a.decayRate(2)
	correction := math.Sqrt(1-math.Pow(rate2, a.iteration)) /
		(1 - math.Pow(rate1, a.iteration))
	damping := valueOrDefault(a.Damping, adamDefaultDamping)
	for v, vec := range g {
		num := vec.Creator().MakeNumeric
		first, second := a.firstMoment[v], a.secondMoment[v]

		first.Scale(num(rate1))
		scaled := vec.Copy()
		scaled.Scale(num(1 - rate1))
		first.Add(scaled)

		second.Scale(num(rate2))
		squared := vec.Copy()
		anyvec.Pow(squared, num(2))
		squared.Scale(num(1 - rate2))
		second.Add(squared)

		vec.Set(first)
		vec.Scale(num(correction))
		divisor := second.Copy()
		divisor.AddScalar(num(damping))
		anyvec.Pow(divisor, num(0.5))
		vec.Div(divisor)
	}
	return g
}

// Iteration returns the number of completed updates.
func (a *Adam) Iteration() int {
	return int(a.iteration)
}

// MarshalBinary serializes the moments and the update
// count.
// The moments are stored in the order of a.Vars.
func (a *Adam) MarshalBinary() ([]byte, error) {
	first, err := marshalGradient(a.Vars, a.firstMoment)
	if err != nil {
		return nil, essentials.AddCtx("marshal Adam", err)
	}
	second, err := marshalGradient(a.Vars, a.secondMoment)
	if err != nil {
		return nil, essentials.AddCtx("marshal Adam", err)
	}
	return serializer.SerializeAny(serializer.Float64(a.iteration),
		serializer.Bytes(first), serializer.Bytes(second))
}

// UnmarshalBinary restores moments produced by
// MarshalBinary.
// The variables must already be set in a.Vars.
func (a *Adam) UnmarshalBinary(d []byte) error {
	var iter serializer.Float64
	var first, second serializer.Bytes
	if err := serializer.DeserializeAny(d, &iter, &first, &second); err != nil {
		return essentials.AddCtx("unmarshal Adam", err)
	}
	firstMoment, err := unmarshalGradient(a.Vars, first)
	if err != nil {
		return essentials.AddCtx("unmarshal Adam", err)
	}
	secondMoment, err := unmarshalGradient(a.Vars, second)
	if err != nil {
		return essentials.AddCtx("unmarshal Adam", err)
	}
	if (firstMoment == nil) != (secondMoment == nil) {
		return errors.New("unmarshal Adam: missing moment")
	}
	a.iteration = float64(iter)
	a.firstMoment = firstMoment
	a.secondMoment = secondMoment
	return nil
}

func (a *Adam) decayRate(moment int) float64 {
	switch moment {
	case 1:
		return valueOrDefault(a.DecayRate1, adamDefaultDecayRate1)
	case 2:
		return valueOrDefault(a.DecayRate2, adamDefaultDecayRate2)
	default:
		panic("invalid moment")
	}
}
