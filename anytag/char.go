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

const (
	// CharEmbedDim is the size of a character embedding.
	CharEmbedDim = 50

	// CharFeatureWidth is the number of character-derived
	// features appended to every word embedding.
	CharFeatureWidth = 50
)

func init() {
	var c CharTagger
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCharTagger)
}

// CharTagger is a bidirectional tagger whose inputs are
// word embeddings joined with features from a
// bidirectional LSTM over each word's characters.
//
// The character features of a word are the final forward
// output of CharEncoder followed by the final output of
// its backward direction, which reads the word in reverse.
type CharTagger struct {
	Dropout     *Dropout
	Words       *Embedding
	Chars       *Embedding
	CharEncoder *anyrnn.Bidir
	Encoder     *anyrnn.Bidir
	Output      *Projection
}

// DeserializeCharTagger deserializes a CharTagger.
func DeserializeCharTagger(d []byte) (*CharTagger, error) {
	var res CharTagger
	err := serializer.DeserializeAny(d, &res.Dropout, &res.Words, &res.Chars,
		&res.CharEncoder, &res.Encoder, &res.Output)
	if err != nil {
		return nil, essentials.AddCtx("deserialize CharTagger", err)
	}
	if res.Output.InCount != 2*res.StateWidth() {
		return nil, fmt.Errorf("deserialize CharTagger: output expects %d features "+
			"but encoder gives %d", res.Output.InCount, 2*res.StateWidth())
	}
	return &res, nil
}

// NewCharTagger creates a randomized CharTagger.
// Word embeddings have unit components, and the sentence
// encoder has a width of unit+CharFeatureWidth.
func NewCharTagger(c anyvec.Creator, vocab, chars, tags, unit int,
	dropout bool) *CharTagger {
	width := unit + CharFeatureWidth
	half := CharFeatureWidth / 2
	return &CharTagger{
		Dropout: &Dropout{Enabled: dropout, KeepProb: DefaultKeepProb},
		Words:   NewEmbedding(c, vocab, unit),
		Chars:   NewEmbedding(c, chars, CharEmbedDim),
		CharEncoder: &anyrnn.Bidir{
			Forward:  anyrnn.NewLSTM(c, CharEmbedDim, half),
			Backward: anyrnn.NewLSTM(c, CharEmbedDim, half),
		},
		Encoder: &anyrnn.Bidir{
			Forward:  anyrnn.NewLSTM(c, width, width),
			Backward: anyrnn.NewLSTM(c, width, width),
		},
		Output: NewProjection(c, 2*width, tags),
	}
}

// StateWidth returns the width of the start state.
func (c *CharTagger) StateWidth() int {
	return c.Words.Dim + CharFeatureWidth
}

// NumTags returns the number of scores per token.
func (c *CharTagger) NumTags() int {
	return c.Output.OutCount
}

// Tag computes tag scores for every sequence.
// Every token needs a character sequence; chars may only
// be nil if every token sequence is empty.
func (c *CharTagger) Tag(s *anyner.State, tokens [][]int, chars [][][]int,
	train bool) anyseq.Seq {
	checkStart(s, len(tokens), c.StateWidth())
	if chars != nil && len(chars) != len(tokens) {
		panic(fmt.Sprintf("got characters for %d of %d sequences", len(chars),
			len(tokens)))
	}
	for i, seq := range tokens {
		var n int
		if chars != nil {
			n = len(chars[i])
		}
		if n != len(seq) {
			panic(fmt.Sprintf("sequence %d: %d tokens but %d character sequences",
				i, len(seq), n))
		}
	}

	present, order := timeMajor(seqLens(tokens))
	ids := make([]int, len(order))
	words := make([][]int, len(order))
	for i, p := range order {
		ids[i] = tokens[p.Seq][p.Index]
		words[i] = chars[p.Seq][p.Index]
	}
	in := anyrnn.JoinColumns(c.Words.Lookup(ids), c.charFeatures(words), len(order))
	in = c.Dropout.Apply(in, train)
	seq := packSeq(c.creator(), in, present, c.StateWidth())

	start, startGrad := anyrnn.VarStart(s.Hidden, s.Cell, s.BatchSize())
	features := c.Encoder.ApplyStart(seq, start, startGrad)
	return anyseq.Map(features, c.Output.Apply)
}

// charFeatures computes one row of CharFeatureWidth
// features per word.
// Words without characters get zero features.
func (c *CharTagger) charFeatures(words [][]int) anydiff.Res {
	cr := c.creator()
	lens := seqLens(words)
	present, order := timeMajor(lens)
	ids := make([]int, len(order))
	for i, p := range order {
		ids[i] = words[p.Seq][p.Index]
	}
	seq := packSeq(cr, c.Chars.Lookup(ids), present, c.Chars.Dim)
	final := c.CharEncoder.ApplyFinal(seq)

	var missing bool
	for _, l := range lens {
		if l == 0 {
			missing = true
		}
	}
	if !missing {
		return final
	}
	return anydiff.Pool(final, func(final anydiff.Res) anydiff.Res {
		zero := anydiff.NewConst(cr.MakeVector(CharFeatureWidth))
		rows := make([]anydiff.Res, len(words))
		var idx int
		for i, l := range lens {
			if l == 0 {
				rows[i] = zero
			} else {
				rows[i] = anydiff.Slice(final, idx*CharFeatureWidth, (idx+1)*CharFeatureWidth)
				idx++
			}
		}
		return anydiff.Concat(rows...)
	})
}

// Parameters returns the parameters of every layer.
func (c *CharTagger) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, p := range []anyner.Parameterizer{c.Words, c.Chars, c.CharEncoder,
		c.Encoder, c.Output} {
		res = append(res, p.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a CharTagger with the serializer package.
func (c *CharTagger) SerializerType() string {
	return "github.com/unixpickle/anyner/anytag.CharTagger"
}

// Serialize serializes the CharTagger.
func (c *CharTagger) Serialize() ([]byte, error) {
	return serializer.SerializeAny(c.Dropout, c.Words, c.Chars, c.CharEncoder,
		c.Encoder, c.Output)
}

func (c *CharTagger) creator() anyvec.Creator {
	return c.Words.Vectors.Vector.Creator()
}
