package anytag

import (
	"errors"
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var p Projection
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializeProjection)
}

// Projection maps each row of encoder features to a row
// of tag scores.
type Projection struct {
	InCount  int
	OutCount int
	Weights  *anydiff.Var
	Biases   *anydiff.Var
}

// DeserializeProjection attempts to deserialize a
// Projection.
func DeserializeProjection(d []byte) (*Projection, error) {
	var weights, biases *anyvecsave.S
	if err := serializer.DeserializeAny(d, &weights, &biases); err != nil {
		return nil, essentials.AddCtx("deserialize Projection", err)
	}
	outCount := biases.Vector.Len()
	if outCount == 0 {
		return nil, errors.New("deserialize Projection: no outputs")
	}
	inCount := weights.Vector.Len() / outCount
	if inCount*outCount != weights.Vector.Len() {
		return nil, errors.New("deserialize Projection: invalid matrix dimensions")
	}
	return &Projection{
		InCount:  inCount,
		OutCount: outCount,
		Weights:  anydiff.NewVar(weights.Vector),
		Biases:   anydiff.NewVar(biases.Vector),
	}, nil
}

// NewProjection creates a randomized Projection whose
// outputs have unit variance for unit variance inputs.
func NewProjection(c anyvec.Creator, in, out int) *Projection {
	res := &Projection{
		InCount:  in,
		OutCount: out,
		Weights:  anydiff.NewVar(c.MakeVector(in * out)),
		Biases:   anydiff.NewVar(c.MakeVector(out)),
	}
	anyvec.Rand(res.Weights.Vector, anyvec.Normal, nil)
	res.Weights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(in))))
	return res
}

// Apply projects n rows of features.
func (p *Projection) Apply(in anydiff.Res, n int) anydiff.Res {
	if n*p.InCount != in.Output().Len() {
		panic(fmt.Sprintf("input length should be %d, but got %d",
			n*p.InCount, in.Output().Len()))
	}
	if n == 0 {
		return anydiff.NewConst(in.Output().Creator().MakeVector(0))
	}
	weighted := anydiff.MatMul(false, true,
		&anydiff.Matrix{Data: in, Rows: n, Cols: p.InCount},
		&anydiff.Matrix{Data: p.Weights, Rows: p.OutCount, Cols: p.InCount},
	)
	return anydiff.AddRepeated(weighted.Data, p.Biases)
}

// Parameters returns the weights and the biases, in that
// order.
func (p *Projection) Parameters() []*anydiff.Var {
	return []*anydiff.Var{p.Weights, p.Biases}
}

// SerializerType returns the unique ID used to serialize
// a Projection with the serializer package.
func (p *Projection) SerializerType() string {
	return "github.com/unixpickle/anyner/anytag.Projection"
}

// Serialize serializes the Projection.
func (p *Projection) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		&anyvecsave.S{Vector: p.Weights.Vector},
		&anyvecsave.S{Vector: p.Biases.Vector},
	)
}
