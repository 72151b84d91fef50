package anytag

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyner"
	"github.com/unixpickle/anyner/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var w WordTagger
	serializer.RegisterTypedDeserializer(w.SerializerType(), DeserializeWordTagger)
}

// WordTagger tags each token from its word embedding and
// a recurrent encoding of the sentence.
//
// If Backward is nil, the encoder is a left-to-right LSTM.
// Otherwise, the features of both directions are joined
// per token before the output projection.
// Both directions start from the tagger's start state.
type WordTagger struct {
	Dropout   *Dropout
	Embedding *Embedding
	Forward   *anyrnn.LSTM
	Backward  *anyrnn.LSTM
	Output    *Projection
}

// DeserializeWordTagger deserializes a WordTagger.
func DeserializeWordTagger(d []byte) (*WordTagger, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize WordTagger", err)
	}
	if len(slice) != 4 && len(slice) != 5 {
		return nil, fmt.Errorf("deserialize WordTagger: unexpected layer count %d",
			len(slice))
	}
	res := &WordTagger{}
	var ok [5]bool
	res.Dropout, ok[0] = slice[0].(*Dropout)
	res.Embedding, ok[1] = slice[1].(*Embedding)
	res.Forward, ok[2] = slice[2].(*anyrnn.LSTM)
	res.Output, ok[3] = slice[len(slice)-1].(*Projection)
	ok[4] = true
	if len(slice) == 5 {
		res.Backward, ok[4] = slice[3].(*anyrnn.LSTM)
	}
	for _, x := range ok {
		if !x {
			return nil, fmt.Errorf("deserialize WordTagger: unexpected layer types")
		}
	}
	return res, nil
}

// NewWordTagger creates a randomized WordTagger whose
// embedding and recurrent widths are both unit.
func NewWordTagger(c anyvec.Creator, vocab, tags, unit int, bidir, dropout bool) *WordTagger {
	res := &WordTagger{
		Dropout:   &Dropout{Enabled: dropout, KeepProb: DefaultKeepProb},
		Embedding: NewEmbedding(c, vocab, unit),
		Forward:   anyrnn.NewLSTM(c, unit, unit),
	}
	outIn := unit
	if bidir {
		res.Backward = anyrnn.NewLSTM(c, unit, unit)
		outIn *= 2
	}
	res.Output = NewProjection(c, outIn, tags)
	return res
}

// StateWidth returns the width of the start state.
func (w *WordTagger) StateWidth() int {
	return w.Forward.StateCount()
}

// NumTags returns the number of scores per token.
func (w *WordTagger) NumTags() int {
	return w.Output.OutCount
}

// Tag computes tag scores for every sequence.
// The chars argument is ignored.
func (w *WordTagger) Tag(s *anyner.State, tokens [][]int, chars [][][]int,
	train bool) anyseq.Seq {
	checkStart(s, len(tokens), w.StateWidth())
	present, order := timeMajor(seqLens(tokens))
	ids := make([]int, len(order))
	for i, p := range order {
		ids[i] = tokens[p.Seq][p.Index]
	}
	in := w.Dropout.Apply(w.Embedding.Lookup(ids), train)
	seq := packSeq(w.creator(), in, present, w.Embedding.Dim)

	start, startGrad := anyrnn.VarStart(s.Hidden, s.Cell, s.BatchSize())
	var features anyseq.Seq
	if w.Backward == nil {
		features = anyrnn.MapWithStart(seq, w.Forward, start, startGrad)
	} else {
		bidir := &anyrnn.Bidir{Forward: w.Forward, Backward: w.Backward}
		features = bidir.ApplyStart(seq, start, startGrad)
	}
	return anyseq.Map(features, w.Output.Apply)
}

// Parameters returns the embedding, encoder, and output
// parameters.
func (w *WordTagger) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, p := range w.parameterizers() {
		res = append(res, p.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a WordTagger with the serializer package.
func (w *WordTagger) SerializerType() string {
	return "github.com/unixpickle/anyner/anytag.WordTagger"
}

// Serialize serializes the WordTagger.
func (w *WordTagger) Serialize() ([]byte, error) {
	slice := []serializer.Serializer{w.Dropout, w.Embedding, w.Forward}
	if w.Backward != nil {
		slice = append(slice, w.Backward)
	}
	slice = append(slice, w.Output)
	return serializer.SerializeSlice(slice)
}

func (w *WordTagger) creator() anyvec.Creator {
	return w.Embedding.Vectors.Vector.Creator()
}

func (w *WordTagger) parameterizers() []anyner.Parameterizer {
	res := []anyner.Parameterizer{w.Embedding, w.Forward}
	if w.Backward != nil {
		res = append(res, w.Backward)
	}
	return append(res, w.Output)
}
