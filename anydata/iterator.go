package anydata

import (
	"errors"
	"io"
	"math/rand"

	"github.com/unixpickle/anyner"
	"github.com/unixpickle/essentials"
)

// ErrNoExamples is returned when a repeating iterator is
// asked for a batch of an empty dataset.
var ErrNoExamples = errors.New("no examples to iterate over")

// A SerialIterator walks through a list of examples in
// mini-batches.
//
// A repeating iterator cycles through the examples
// forever, reshuffling at the start of each pass if
// Shuffle is set.
// The last batch of a pass holds whatever examples are
// left, so it may be short.
//
// A non-repeating iterator makes one pass and then returns
// io.EOF.
type SerialIterator struct {
	Examples  []*anyner.Example
	BatchSize int
	Repeat    bool
	Shuffle   bool

	// UseChars indicates that every example must carry
	// character sequences.
	UseChars bool

	// Rand is used for shuffling.
	// If nil, the math/rand global source is used.
	Rand *rand.Rand

	order      []int
	offset     int
	epoch      int
	isNewEpoch bool
}

// Next returns the next batch.
func (s *SerialIterator) Next() (*anyner.Batch, error) {
	if s.BatchSize <= 0 {
		panic("batch size must be positive")
	}
	if s.order == nil {
		s.Reset()
	}
	if len(s.Examples) == 0 {
		if s.Repeat {
			return nil, ErrNoExamples
		}
		return nil, io.EOF
	}
	if !s.Repeat && s.epoch > 0 {
		return nil, io.EOF
	}

	end := min(s.offset+s.BatchSize, len(s.Examples))
	examples := make([]*anyner.Example, 0, end-s.offset)
	for _, idx := range s.order[s.offset:end] {
		examples = append(examples, s.Examples[idx])
	}
	batch, err := anyner.NewBatch(examples, s.UseChars)
	if err != nil {
		return nil, essentials.AddCtx("next batch", err)
	}

	s.offset = end
	s.isNewEpoch = false
	if s.offset == len(s.Examples) {
		s.epoch++
		s.isNewEpoch = true
		s.offset = 0
		if s.Repeat {
			s.shuffle()
		}
	}
	return batch, nil
}

// Epoch returns the number of completed passes.
func (s *SerialIterator) Epoch() int {
	return s.epoch
}

// IsNewEpoch reports whether the last batch ended a pass.
func (s *SerialIterator) IsNewEpoch() bool {
	return s.isNewEpoch
}

// EpochDetail returns the fractional number of passes.
func (s *SerialIterator) EpochDetail() float64 {
	if len(s.Examples) == 0 {
		return float64(s.epoch)
	}
	return float64(s.epoch) + float64(s.offset)/float64(len(s.Examples))
}

// Copy creates an iterator with an independent position.
// The examples and random source are shared.
func (s *SerialIterator) Copy() *SerialIterator {
	res := *s
	if s.order != nil {
		res.order = append([]int{}, s.order...)
	}
	return &res
}

// Reset moves the iterator back to the start of its
// first pass.
func (s *SerialIterator) Reset() {
	s.order = make([]int, len(s.Examples))
	for i := range s.order {
		s.order[i] = i
	}
	s.offset = 0
	s.epoch = 0
	s.isNewEpoch = false
	s.shuffle()
}

// Rewind moves the iterator back to the start of its
// current pass without reshuffling, so the same batches
// are produced again and Rand is not used.
func (s *SerialIterator) Rewind() {
	if s.order == nil {
		s.order = make([]int, len(s.Examples))
		for i := range s.order {
			s.order[i] = i
		}
	}
	s.offset = 0
	s.epoch = 0
	s.isNewEpoch = false
}

func (s *SerialIterator) shuffle() {
	if !s.Shuffle {
		return
	}
	perm := rand.Perm
	if s.Rand != nil {
		perm = s.Rand.Perm
	}
	for i, j := range perm(len(s.order)) {
		s.order[i] = j
	}
}
