// Package anydata reads tagged corpora and feeds their
// examples to a trainer in batches.
package anydata

import "github.com/unixpickle/anyner"

// A Source produces training batches.
type Source interface {
	// Next returns the next batch.
	// A finite Source returns io.EOF when it is exhausted.
	Next() (*anyner.Batch, error)

	// Epoch returns the number of completed passes over
	// the data.
	Epoch() int

	// IsNewEpoch reports whether the last batch returned
	// by Next completed a pass over the data.
	IsNewEpoch() bool

	// EpochDetail returns the fractional number of passes
	// over the data.
	EpochDetail() float64
}
