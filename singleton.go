package anyner

import "math/rand"

// DefaultUnknownID is the token id which singletons are
// replaced with.
const DefaultUnknownID = 0

// A SingletonTable is an immutable set of token ids which
// occur exactly once in the training data.
type SingletonTable struct {
	ids map[int]struct{}
}

// NewSingletonTable creates a table containing the ids.
func NewSingletonTable(ids ...int) SingletonTable {
	m := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return SingletonTable{ids: m}
}

// Contains checks if the id is a singleton.
func (s SingletonTable) Contains(id int) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of singleton ids.
func (s SingletonTable) Len() int {
	return len(s.ids)
}

// A Coin decides, one singleton occurrence at a time,
// whether or not the occurrence is replaced.
type Coin interface {
	Flip() bool
}

// FairCoin flips true with probability 0.5.
type FairCoin struct {
	// Rand is the random source.
	// If nil, the math/rand global source is used.
	Rand *rand.Rand
}

// Flip draws a fresh random bit.
func (f FairCoin) Flip() bool {
	if f.Rand == nil {
		return rand.Intn(2) == 1
	}
	return f.Rand.Intn(2) == 1
}

// ConstCoin always flips the same way.
type ConstCoin bool

// Flip returns bool(c).
func (c ConstCoin) Flip() bool {
	return bool(c)
}

// A Regularizer implements rare-word dropout.
//
// Every occurrence of a singleton token is independently
// replaced with UnknownID according to Coin.
// The regularizer is only applied to training batches.
type Regularizer struct {
	Singletons SingletonTable
	UnknownID  int

	// Coin is flipped once per singleton occurrence.
	// If nil, a FairCoin on the global source is used.
	Coin Coin
}

// Regularize produces a regularized copy of the tokens.
// The input slice is not modified.
func (r *Regularizer) Regularize(tokens []int) []int {
	coin := r.Coin
	if coin == nil {
		coin = FairCoin{}
	}
	res := make([]int, len(tokens))
	for i, id := range tokens {
		if r.Singletons.Contains(id) && coin.Flip() {
			res[i] = r.UnknownID
		} else {
			res[i] = id
		}
	}
	return res
}

// RegularizeBatch produces a new batch in which every
// token sequence has been regularized.
// Labels and characters are shared with b.
func (r *Regularizer) RegularizeBatch(b *Batch) *Batch {
	res := &Batch{Examples: make([]*Example, len(b.Examples))}
	for i, e := range b.Examples {
		res.Examples[i] = &Example{
			Tokens: r.Regularize(e.Tokens),
			Chars:  e.Chars,
			Labels: e.Labels,
		}
	}
	return res
}
