package anyrnn

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var b Bidir
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeBidir)
}

// Bidir implements a bi-directional RNN.
//
// A forward block is evaluated on the input sequence,
// while a backward block is mapped over the reversed
// input sequence.
// At every timestep, the forward output columns are
// followed by the backward output columns.
type Bidir struct {
	Forward  Block
	Backward Block
}

// DeserializeBidir deserializes a Bidir.
func DeserializeBidir(d []byte) (*Bidir, error) {
	var res Bidir
	err := serializer.DeserializeAny(d, &res.Forward, &res.Backward)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Bidir", err)
	}
	return &res, nil
}

// Apply applies the bidirectional RNN, starting both
// directions from their default start states.
func (b *Bidir) Apply(in anyseq.Seq) anyseq.Seq {
	return anyseq.Pool(in, func(in anyseq.Seq) anyseq.Seq {
		forwOut := Map(in, b.Forward)
		backOut := anyseq.Reverse(Map(anyseq.Reverse(in), b.Backward))
		return joinSeqs(forwOut, backOut)
	})
}

// ApplyStart is like Apply, but both directions start
// from the state s.
// The function f back-propagates through s, and is called
// once per direction.
func (b *Bidir) ApplyStart(in anyseq.Seq, s State, f func(StateGrad, anydiff.Grad)) anyseq.Seq {
	return anyseq.Pool(in, func(in anyseq.Seq) anyseq.Seq {
		forwOut := MapWithStart(in, b.Forward, s, f)
		backOut := anyseq.Reverse(MapWithStart(anyseq.Reverse(in), b.Backward, s, f))
		return joinSeqs(forwOut, backOut)
	})
}

// ApplyFinal summarizes every non-empty sequence by the
// last output of the forward block followed by the last
// output of the backward block, which has seen the
// sequence in reverse.
//
// The result has one row per non-empty sequence, in
// order of sequence index.
func (b *Bidir) ApplyFinal(in anyseq.Seq) anydiff.Res {
	if len(in.Output()) == 0 {
		return anydiff.NewConst(in.Creator().MakeVector(0))
	}
	rows := in.Output()[0].NumPresent()
	return anyseq.PoolToVec(in, func(in anyseq.Seq) anydiff.Res {
		forw := anyseq.Tail(Map(in, b.Forward))
		back := anyseq.Tail(Map(anyseq.Reverse(in), b.Backward))
		return JoinColumns(forw, back, rows)
	})
}

// Parameters returns the parameters of both blocks.
func (b *Bidir) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, x := range []Block{b.Forward, b.Backward} {
		if p, ok := x.(interface {
			Parameters() []*anydiff.Var
		}); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a Bidir with the serializer package.
func (b *Bidir) SerializerType() string {
	return "github.com/unixpickle/anyner/anyrnn.Bidir"
}

// Serialize serializes the Bidir.
func (b *Bidir) Serialize() ([]byte, error) {
	return serializer.SerializeAny(b.Forward, b.Backward)
}

// JoinColumns places the columns of b to the right of the
// columns of a, for two matrices with the given number of
// rows.
func JoinColumns(a, b anydiff.Res, rows int) anydiff.Res {
	if rows == 0 {
		return anydiff.Concat(a, b)
	}
	aCols := a.Output().Len() / rows
	bCols := b.Output().Len() / rows
	at := anydiff.Transpose(&anydiff.Matrix{Data: a, Rows: rows, Cols: aCols})
	bt := anydiff.Transpose(&anydiff.Matrix{Data: b, Rows: rows, Cols: bCols})
	joined := &anydiff.Matrix{
		Data: anydiff.Concat(at.Data, bt.Data),
		Rows: aCols + bCols,
		Cols: rows,
	}
	return anydiff.Transpose(joined).Data
}

func joinSeqs(forw, back anyseq.Seq) anyseq.Seq {
	if len(forw.Output()) != len(back.Output()) {
		panic(fmt.Sprintf("timestep count mismatch: %d and %d", len(forw.Output()),
			len(back.Output())))
	}
	if len(forw.Output()) == 0 {
		return forw
	}
	return anyseq.MapN(func(n int, v ...anydiff.Res) anydiff.Res {
		return JoinColumns(v[0], v[1], n)
	}, forw, back)
}
