package anytrain

import (
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyner"
	"github.com/unixpickle/anyvec/anyvec64"
)

// constTagger gives every token the same scores.
type constTagger struct {
	Scores *anydiff.Var

	// Seen records the token sequences of every call.
	Seen [][][]int
	lock sync.Mutex
}

func newConstTagger(scores ...float64) *constTagger {
	return &constTagger{Scores: anydiff.NewVar(anyvec64.MakeVectorData(scores))}
}

func (c *constTagger) Parameters() []*anydiff.Var {
	return []*anydiff.Var{c.Scores}
}

func (c *constTagger) StateWidth() int {
	return 3
}

func (c *constTagger) NumTags() int {
	return c.Scores.Vector.Len()
}

func (c *constTagger) Tag(s *anyner.State, tokens [][]int, chars [][][]int,
	train bool) anyseq.Seq {
	c.lock.Lock()
	c.Seen = append(c.Seen, tokens)
	c.lock.Unlock()
	var batches []*anyseq.ResBatch
	for t := 0; ; t++ {
		present := make([]bool, len(tokens))
		var rows []anydiff.Res
		for i, seq := range tokens {
			if len(seq) > t {
				present[i] = true
				rows = append(rows, c.Scores)
			}
		}
		if len(rows) == 0 {
			break
		}
		batches = append(batches, &anyseq.ResBatch{
			Packed:  anydiff.Concat(rows...),
			Present: present,
		})
	}
	return anyseq.ResSeq(c.Scores.Vector.Creator(), batches)
}
