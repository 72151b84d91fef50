package anytag

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var e Embedding
	serializer.RegisterTypedDeserializer(e.SerializerType(), DeserializeEmbedding)
}

// An Embedding maps ids to learned vectors.
type Embedding struct {
	Dim     int
	Vectors *anydiff.Var
}

// DeserializeEmbedding deserializes an Embedding.
func DeserializeEmbedding(d []byte) (*Embedding, error) {
	var dim serializer.Int
	var vecs *anyvecsave.S
	if err := serializer.DeserializeAny(d, &dim, &vecs); err != nil {
		return nil, essentials.AddCtx("deserialize Embedding", err)
	}
	if dim <= 0 || vecs.Vector.Len()%int(dim) != 0 {
		return nil, fmt.Errorf("deserialize Embedding: bad dimension %d", dim)
	}
	return &Embedding{Dim: int(dim), Vectors: anydiff.NewVar(vecs.Vector)}, nil
}

// NewEmbedding creates an Embedding with normally
// distributed vectors.
func NewEmbedding(c anyvec.Creator, count, dim int) *Embedding {
	vecs := c.MakeVector(count * dim)
	anyvec.Rand(vecs, anyvec.Normal, nil)
	return &Embedding{Dim: dim, Vectors: anydiff.NewVar(vecs)}
}

// Count returns the number of embedded ids.
func (e *Embedding) Count() int {
	return e.Vectors.Vector.Len() / e.Dim
}

// Lookup gathers the vectors for a sequence of ids.
// The result has len(ids) rows of e.Dim components.
func (e *Embedding) Lookup(ids []int) anydiff.Res {
	c := e.Vectors.Vector.Creator()
	if len(ids) == 0 {
		return anydiff.NewConst(c.MakeVector(0))
	}
	count := e.Count()
	table := make([]int, 0, len(ids)*e.Dim)
	for _, id := range ids {
		if id < 0 || id >= count {
			panic(fmt.Sprintf("id %d out of range [0, %d)", id, count))
		}
		for j := 0; j < e.Dim; j++ {
			table = append(table, id*e.Dim+j)
		}
	}
	mapper := c.MakeMapper(e.Vectors.Vector.Len(), table)
	out := c.MakeVector(len(table))
	mapper.Map(e.Vectors.Vector, out)
	return &lookupRes{Table: e.Vectors, Mapper: mapper, OutVec: out}
}

// Parameters returns the embedding matrix.
func (e *Embedding) Parameters() []*anydiff.Var {
	return []*anydiff.Var{e.Vectors}
}

// SerializerType returns the unique ID used to serialize
// an Embedding with the serializer package.
func (e *Embedding) SerializerType() string {
	return "github.com/unixpickle/anyner/anytag.Embedding"
}

// Serialize serializes the Embedding.
func (e *Embedding) Serialize() ([]byte, error) {
	return serializer.SerializeAny(serializer.Int(e.Dim),
		&anyvecsave.S{Vector: e.Vectors.Vector})
}

type lookupRes struct {
	Table  *anydiff.Var
	Mapper anyvec.Mapper
	OutVec anyvec.Vector
}

func (l *lookupRes) Output() anyvec.Vector {
	return l.OutVec
}

func (l *lookupRes) Vars() anydiff.VarSet {
	return anydiff.NewVarSet(l.Table)
}

func (l *lookupRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	dest, ok := g[l.Table]
	if !ok {
		return
	}
	down := u.Creator().MakeVector(dest.Len())
	l.Mapper.MapTranspose(u, down)
	dest.Add(down)
}
