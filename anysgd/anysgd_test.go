package anysgd

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

type testSample struct {
	X2 float64
	Y2 float64
	XY float64
	X  float64
	Y  float64
}

func (t *testSample) Apply(x, y anydiff.Res) anydiff.Res {
	mk := x.Output().Creator().MakeNumeric
	a := anydiff.Scale(anydiff.Mul(x, x), mk(t.X2))
	b := anydiff.Scale(anydiff.Mul(y, y), mk(t.Y2))
	c := anydiff.Scale(anydiff.Mul(x, y), mk(t.XY))
	d := anydiff.Scale(x, mk(t.X))
	e := anydiff.Scale(y, mk(t.Y))
	return anydiff.Add(
		anydiff.Add(a, b),
		anydiff.Add(anydiff.Add(c, d), e),
	)
}

// Together, these polynomials add up to 3x^2+3xy-2x+y^2.
// The global minimum is (x = 4/3, y = -2).
var testSamples = []*testSample{
	{X2: 2, X: -1, XY: 0, Y2: 0.5},
	{X2: -1, X: 0, XY: 2, Y2: 0.5},
	{X2: 2, X: -1, XY: 1, Y2: 0},
}

type testProblem struct {
	X *anydiff.Var
	Y *anydiff.Var
}

func newTestProblem(c anyvec.Creator) *testProblem {
	return &testProblem{
		X: anydiff.NewVar(c.MakeVector(1)),
		Y: anydiff.NewVar(c.MakeVector(1)),
	}
}

func (t *testProblem) Gradient(s *testSample) anydiff.Grad {
	grad := anydiff.NewGrad(t.X, t.Y)
	c := t.X.Vector.Creator()
	one := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	s.Apply(t.X, t.Y).Propagate(one, grad)
	return grad
}

func (t *testProblem) check(tb testing.TB) {
	x := t.X.Vector.Data().([]float32)[0]
	y := t.Y.Vector.Data().([]float32)[0]
	if math.Abs(float64(x)-4.0/3) > 1e-2 {
		tb.Errorf("bad x value: %f", x)
	}
	if math.Abs(float64(y)+2) > 1e-2 {
		tb.Errorf("bad y value: %f", y)
	}
}

func TestUpdate(t *testing.T) {
	p := newTestProblem(anyvec32.DefaultCreator{})
	for i := 0; i < 400000; i++ {
		Update(p.Gradient(testSamples[i%len(testSamples)]), 0.0002)
	}
	p.check(t)
}

func TestAdam(t *testing.T) {
	p := newTestProblem(anyvec32.DefaultCreator{})
	adam := &Adam{}
	for i := 0; i < 100000; i++ {
		Update(p.Gradient(testSamples[i%len(testSamples)]), DefaultAdamRate, adam)
	}
	p.check(t)
	if adam.Iteration() != 100000 {
		t.Errorf("expected 100000 iterations but got %d", adam.Iteration())
	}
}

func TestClip(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v1 := anydiff.NewVar(c.MakeVector(2))
	v2 := anydiff.NewVar(c.MakeVector(1))
	grad := anydiff.Grad{
		v1: c.MakeVectorData([]float64{3, 4}),
		v2: c.MakeVectorData([]float64{12}),
	}
	if n := Norm(grad); math.Abs(n-13) > 1e-10 {
		t.Fatalf("expected norm 13 but got %f", n)
	}
	(&Clip{}).Transform(grad)
	if n := Norm(grad); math.Abs(n-5) > 1e-10 {
		t.Errorf("expected clipped norm 5 but got %f", n)
	}
	expected := []float64{3 * 5.0 / 13, 4 * 5.0 / 13}
	actual := grad[v1].Data().([]float64)
	for i, x := range expected {
		if math.Abs(actual[i]-x) > 1e-10 {
			t.Errorf("component %d: expected %f but got %f", i, x, actual[i])
		}
	}

	small := anydiff.Grad{v1: c.MakeVectorData([]float64{1, 1})}
	(&Clip{Threshold: 2}).Transform(small)
	if !reflect.DeepEqual(small[v1].Data(), []float64{1, 1}) {
		t.Error("small gradient should not change")
	}
}

func TestChain(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := anydiff.NewVar(c.MakeVectorData([]float64{1, 1}))
	grad := anydiff.Grad{v: c.MakeVectorData([]float64{30, 40})}
	Update(grad, 0.5, Chain{&Clip{Threshold: 5}})
	expected := []float64{1 - 0.5*3, 1 - 0.5*4}
	actual := v.Vector.Data().([]float64)
	for i, x := range expected {
		if math.Abs(actual[i]-x) > 1e-10 {
			t.Errorf("component %d: expected %f but got %f", i, x, actual[i])
		}
	}
}

func TestGradientMarshal(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	vars := randomVars(c)
	grad := randomGrad(vars)

	data, err := marshalGradient(vars, grad)
	if err != nil {
		t.Fatal(err)
	}

	newGrad, err := unmarshalGradient(vars, data)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(grad, newGrad) {
		t.Error("gradient mismatch")
	}
}

func TestAdamFirstStep(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := anydiff.NewVar(c.MakeVector(2))
	adam := &Adam{Vars: []*anydiff.Var{v}}
	out := adam.Transform(anydiff.Grad{v: c.MakeVectorData([]float64{2, -0.5})})
	actual := out[v].Data().([]float64)
	for i, g := range []float64{2, -0.5} {
		second := (1 - adamDefaultDecayRate2) * g * g
		x := g * math.Sqrt(1-adamDefaultDecayRate2) / math.Sqrt(second+adamDefaultDamping)
		if math.Abs(actual[i]-x) > 1e-10 {
			t.Errorf("component %d: expected %f but got %f", i, x, actual[i])
		}
	}
}

func TestAdamVarsMismatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	vars := randomVars(c)
	adam := &Adam{Vars: vars[:3]}
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	adam.Transform(randomGrad(vars))
}

func TestAdamMarshal(t *testing.T) {
	vars := randomVars(anyvec64.DefaultCreator{})
	testMarshal(t, &Adam{Vars: vars}, vars)
}

func testMarshal(t *testing.T, inst TransformMarshaler, v []*anydiff.Var) {
	var inGrads []anydiff.Grad
	var outGrads []anydiff.Grad
	var checkpoints [][]byte

	for i := 0; i < 5; i++ {
		inGrad := randomGrad(v)
		data, err := inst.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}
		outGrad := copyGrad(inst.Transform(copyGrad(inGrad)))
		inGrads = append(inGrads, inGrad)
		checkpoints = append(checkpoints, data)
		outGrads = append(outGrads, outGrad)
	}

	for _, i := range []int{2, 0, 3, 4, 1} {
		err := inst.UnmarshalBinary(checkpoints[i])
		if err != nil {
			t.Fatal(err)
		}
		out := inst.Transform(copyGrad(inGrads[i]))
		if !reflect.DeepEqual(out, outGrads[i]) {
			t.Errorf("gradient %d came out wrong", i)
		}
	}
}

func copyGrad(g anydiff.Grad) anydiff.Grad {
	res := anydiff.Grad{}
	for v, vec := range g {
		res[v] = vec.Copy()
	}
	return res
}

func randomVars(c anyvec.Creator) []*anydiff.Var {
	vars := []*anydiff.Var{}
	for i := 0; i < 20; i++ {
		size := 1 + i*rand.Intn(3)
		vec := c.MakeVector(size)
		anyvec.Rand(vec, anyvec.Normal, nil)
		vars = append(vars, anydiff.NewVar(vec))
	}
	return vars
}

func randomGrad(vars []*anydiff.Var) anydiff.Grad {
	resGrad := anydiff.Grad{}
	for _, v := range vars {
		gradVec := v.Vector.Creator().MakeVector(v.Vector.Len())
		anyvec.Rand(gradVec, anyvec.Normal, nil)
		resGrad[v] = gradVec
	}
	return resGrad
}
