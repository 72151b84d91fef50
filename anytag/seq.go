package anytag

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyner"
	"github.com/unixpickle/anyvec"
)

// A position locates one element of a ragged batch.
type position struct {
	Seq   int
	Index int
}

// timeMajor orders the elements of sequences with the
// given lengths by timestep, then by sequence.
//
// It also returns the present map of every timestep.
func timeMajor(lens []int) (present [][]bool, order []position) {
	for t := 0; ; t++ {
		p := make([]bool, len(lens))
		var found bool
		for i, l := range lens {
			if l > t {
				p[i] = true
				found = true
				order = append(order, position{Seq: i, Index: t})
			}
		}
		if !found {
			return
		}
		present = append(present, p)
	}
}

// packSeq splits time-major rows of cols components into
// a batch of sequences.
func packSeq(c anyvec.Creator, rows anydiff.Res, present [][]bool, cols int) anyseq.Seq {
	return anyseq.PoolFromVec(rows, func(rows anydiff.Res) anyseq.Seq {
		batches := make([]*anyseq.ResBatch, len(present))
		var offset int
		for t, p := range present {
			var n int
			for _, x := range p {
				if x {
					n++
				}
			}
			batches[t] = &anyseq.ResBatch{
				Packed:  anydiff.Slice(rows, offset, offset+n*cols),
				Present: p,
			}
			offset += n * cols
		}
		return anyseq.ResSeq(c, batches)
	})
}

func checkStart(s *anyner.State, n, width int) {
	if s.BatchSize() != n {
		panic(fmt.Sprintf("start state has %d rows but there are %d sequences",
			s.BatchSize(), n))
	}
	if s.Width() != width {
		panic(fmt.Sprintf("start state width should be %d, but got %d",
			width, s.Width()))
	}
}

func seqLens(tokens [][]int) []int {
	res := make([]int, len(tokens))
	for i, x := range tokens {
		res[i] = len(x)
	}
	return res
}
