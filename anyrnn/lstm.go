package anyrnn

import (
	"errors"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const lstmRememberBias = 1

func init() {
	var g LSTMGate
	serializer.RegisterTypedDeserializer(g.SerializerType(), DeserializeLSTMGate)
	var l LSTM
	serializer.RegisterTypedDeserializer(l.SerializerType(), DeserializeLSTM)
}

// LSTM is a long short-term memory block without
// peephole connections.
//
// The start state is zero unless a custom start state is
// passed to MapWithStart.
type LSTM struct {
	InValue  *LSTMGate
	In       *LSTMGate
	Remember *LSTMGate
	Output   *LSTMGate
}

// DeserializeLSTM deserializes an LSTM.
func DeserializeLSTM(d []byte) (*LSTM, error) {
	var res LSTM
	err := serializer.DeserializeAny(d, &res.InValue, &res.In, &res.Remember, &res.Output)
	if err != nil {
		return nil, essentials.AddCtx("deserialize LSTM", err)
	}
	for _, g := range res.gates()[1:] {
		if g.InCount() != res.InValue.InCount() || g.StateCount() != res.InValue.StateCount() {
			return nil, errors.New("deserialize LSTM: mismatching gate sizes")
		}
	}
	return &res, nil
}

// NewLSTM creates a new, randomized LSTM.
//
// The remember gates of the LSTM are initially biased to
// remember things.
func NewLSTM(c anyvec.Creator, in, state int) *LSTM {
	res := &LSTM{
		InValue:  NewLSTMGate(c, in, state),
		In:       NewLSTMGate(c, in, state),
		Remember: NewLSTMGate(c, in, state),
		Output:   NewLSTMGate(c, in, state),
	}
	res.Remember.Biases.Vector.AddScalar(c.MakeNumeric(lstmRememberBias))
	return res
}

// InCount returns the input size.
func (l *LSTM) InCount() int {
	return l.InValue.InCount()
}

// StateCount returns the size of the hidden and cell
// states, which is also the output size.
func (l *LSTM) StateCount() int {
	return l.InValue.StateCount()
}

// Start produces a zero start state.
func (l *LSTM) Start(n int) State {
	c := l.InValue.Biases.Vector.Creator()
	return &LSTMState{
		Hidden: NewVecState(c, n, l.StateCount()),
		Cell:   NewVecState(c, n, l.StateCount()),
	}
}

// PropagateStart does nothing, since the start state is
// constant.
func (l *LSTM) PropagateStart(s StateGrad, g anydiff.Grad) {
}

// Step performs one timestep.
func (l *LSTM) Step(s State, in anyvec.Vector) Res {
	state := s.(*LSTMState)
	n := s.Present().NumPresent()
	res := &lstmRes{
		InPool:     anydiff.NewVar(in),
		HiddenPool: anydiff.NewVar(state.Hidden.Vector),
		CellPool:   anydiff.NewVar(state.Cell.Vector),
	}
	inValue := anydiff.Tanh(l.InValue.Apply(res.InPool, res.HiddenPool, n))
	inGate := anydiff.Sigmoid(l.In.Apply(res.InPool, res.HiddenPool, n))
	remember := anydiff.Sigmoid(l.Remember.Apply(res.InPool, res.HiddenPool, n))
	outGate := anydiff.Sigmoid(l.Output.Apply(res.InPool, res.HiddenPool, n))

	res.Cell = anydiff.Add(anydiff.Mul(remember, res.CellPool), anydiff.Mul(inGate, inValue))
	res.CellOut = anydiff.NewVar(res.Cell.Output())
	res.Out = anydiff.Mul(outGate, anydiff.Tanh(res.CellOut))
	res.OutState = &LSTMState{
		Hidden: &VecState{Vector: res.Out.Output(), PresentMap: s.Present()},
		Cell:   &VecState{Vector: res.Cell.Output(), PresentMap: s.Present()},
	}

	res.V = anydiff.MergeVarSets(res.Out.Vars(), res.Cell.Vars())
	for _, p := range res.pools() {
		res.V.Del(p)
	}
	return res
}

// Parameters returns the parameters of every gate.
func (l *LSTM) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, g := range l.gates() {
		res = append(res, g.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// an LSTM with the serializer package.
func (l *LSTM) SerializerType() string {
	return "github.com/unixpickle/anyner/anyrnn.LSTM"
}

// Serialize serializes the LSTM.
func (l *LSTM) Serialize() ([]byte, error) {
	return serializer.SerializeAny(l.InValue, l.In, l.Remember, l.Output)
}

func (l *LSTM) gates() []*LSTMGate {
	return []*LSTMGate{l.InValue, l.In, l.Remember, l.Output}
}

// An LSTMGate computes a pre-activation from the input
// and the previous hidden state.
type LSTMGate struct {
	InputWeights *anydiff.Var
	StateWeights *anydiff.Var
	Biases       *anydiff.Var
}

// DeserializeLSTMGate deserializes an LSTMGate.
func DeserializeLSTMGate(d []byte) (*LSTMGate, error) {
	var iw, sw, b *anyvecsave.S
	if err := serializer.DeserializeAny(d, &iw, &sw, &b); err != nil {
		return nil, essentials.AddCtx("deserialize LSTMGate", err)
	}
	state := b.Vector.Len()
	if state == 0 || sw.Vector.Len() != state*state || iw.Vector.Len()%state != 0 {
		return nil, errors.New("deserialize LSTMGate: invalid matrix dimensions")
	}
	return &LSTMGate{
		InputWeights: anydiff.NewVar(iw.Vector),
		StateWeights: anydiff.NewVar(sw.Vector),
		Biases:       anydiff.NewVar(b.Vector),
	}, nil
}

// NewLSTMGate creates a randomized LSTM gate with zero
// biases.
func NewLSTMGate(c anyvec.Creator, in, state int) *LSTMGate {
	res := &LSTMGate{
		InputWeights: anydiff.NewVar(c.MakeVector(state * in)),
		StateWeights: anydiff.NewVar(c.MakeVector(state * state)),
		Biases:       anydiff.NewVar(c.MakeVector(state)),
	}
	anyvec.Rand(res.InputWeights.Vector, anyvec.Normal, nil)
	anyvec.Rand(res.StateWeights.Vector, anyvec.Normal, nil)
	res.InputWeights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(in))))
	res.StateWeights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(state))))
	return res
}

// InCount returns the input size.
func (l *LSTMGate) InCount() int {
	return l.InputWeights.Vector.Len() / l.StateCount()
}

// StateCount returns the output size.
func (l *LSTMGate) StateCount() int {
	return l.Biases.Vector.Len()
}

// Apply computes the pre-activations for a batch of n
// inputs and hidden states.
func (l *LSTMGate) Apply(in, hidden anydiff.Res, n int) anydiff.Res {
	s := l.StateCount()
	wIn := applyWeights(l.InCount(), s, n, l.InputWeights, in)
	wState := applyWeights(s, s, n, l.StateWeights, hidden)
	return anydiff.AddRepeated(anydiff.Add(wIn, wState), l.Biases)
}

// Parameters returns the parameters of the gate.
func (l *LSTMGate) Parameters() []*anydiff.Var {
	return []*anydiff.Var{l.InputWeights, l.StateWeights, l.Biases}
}

// SerializerType returns the unique ID used to serialize
// an LSTM gate with the serializer package.
func (l *LSTMGate) SerializerType() string {
	return "github.com/unixpickle/anyner/anyrnn.LSTMGate"
}

// Serialize serializes the gate.
func (l *LSTMGate) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		&anyvecsave.S{Vector: l.InputWeights.Vector},
		&anyvecsave.S{Vector: l.StateWeights.Vector},
		&anyvecsave.S{Vector: l.Biases.Vector},
	)
}

// LSTMState is the State and StateGrad of an LSTM.
type LSTMState struct {
	Hidden *VecState
	Cell   *VecState

	// V holds the variables of a custom start state.
	V anydiff.VarSet
}

// Vars returns the variables of a custom start state.
func (l *LSTMState) Vars() anydiff.VarSet {
	if l.V == nil {
		return anydiff.VarSet{}
	}
	return l.V
}

// Present returns the present map of the hidden state.
func (l *LSTMState) Present() PresentMap {
	return l.Hidden.Present()
}

// Reduce reduces both internal states.
func (l *LSTMState) Reduce(p PresentMap) State {
	return &LSTMState{
		Hidden: l.Hidden.Reduce(p).(*VecState),
		Cell:   l.Cell.Reduce(p).(*VecState),
	}
}

// Expand expands both internal states.
func (l *LSTMState) Expand(p PresentMap) StateGrad {
	return &LSTMState{
		Hidden: l.Hidden.Expand(p).(*VecState),
		Cell:   l.Cell.Expand(p).(*VecState),
	}
}

// VarStart creates a start state from variables which
// hold one hidden row and one cell row per sequence.
//
// The returned function back-propagates a start state
// gradient into the variables, and may be passed to
// MapWithStart.
func VarStart(hidden, cell *anydiff.Var, n int) (State, func(StateGrad, anydiff.Grad)) {
	p := make(PresentMap, n)
	for i := range p {
		p[i] = true
	}
	s := &LSTMState{
		Hidden: &VecState{Vector: hidden.Vector, PresentMap: p},
		Cell:   &VecState{Vector: cell.Vector, PresentMap: p},
		V:      anydiff.NewVarSet(hidden, cell),
	}
	return s, func(sg StateGrad, g anydiff.Grad) {
		lg := sg.(*LSTMState)
		lg.Hidden.PropagateRows(hidden, g)
		lg.Cell.PropagateRows(cell, g)
	}
}

type lstmRes struct {
	InPool     *anydiff.Var
	HiddenPool *anydiff.Var
	CellPool   *anydiff.Var
	CellOut    *anydiff.Var

	Cell     anydiff.Res
	Out      anydiff.Res
	OutState *LSTMState
	V        anydiff.VarSet
}

func (l *lstmRes) State() State {
	return l.OutState
}

func (l *lstmRes) Output() anyvec.Vector {
	return l.Out.Output()
}

func (l *lstmRes) Vars() anydiff.VarSet {
	return l.V
}

func (l *lstmRes) Propagate(u anyvec.Vector, s StateGrad, g anydiff.Grad) (anyvec.Vector,
	StateGrad) {
	for _, p := range l.pools() {
		g[p] = p.Vector.Creator().MakeVector(p.Vector.Len())
	}
	if s != nil {
		sg := s.(*LSTMState)
		u.Add(sg.Hidden.Vector)
		g[l.CellOut].Add(sg.Cell.Vector)
	}
	l.Out.Propagate(u, g)
	cellUp := g[l.CellOut]
	delete(g, l.CellOut)
	l.Cell.Propagate(cellUp, g)

	present := l.OutState.Present()
	down := &LSTMState{
		Hidden: &VecState{Vector: g[l.HiddenPool], PresentMap: present},
		Cell:   &VecState{Vector: g[l.CellPool], PresentMap: present},
	}
	inDown := g[l.InPool]
	for _, p := range l.pools() {
		delete(g, p)
	}
	return inDown, down
}

func (l *lstmRes) pools() []*anydiff.Var {
	return []*anydiff.Var{l.InPool, l.HiddenPool, l.CellPool, l.CellOut}
}

func applyWeights(in, out, n int, weights, batch anydiff.Res) anydiff.Res {
	weightMat := &anydiff.Matrix{Data: weights, Rows: out, Cols: in}
	inMat := &anydiff.Matrix{Data: batch, Rows: n, Cols: in}
	return anydiff.MatMul(false, true, inMat, weightMat).Data
}
