package anytrain

import (
	"context"
	"errors"
	"io"

	"github.com/unixpickle/anyner"
	"github.com/unixpickle/anyner/anydata"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"golang.org/x/sync/semaphore"
)

// A Summary holds the mean loss and accuracy over the
// batches of an evaluation pass.
type Summary struct {
	Loss     float64
	Accuracy float64
	Batches  int
}

// An Evaluator measures a model on held-out data.
type Evaluator struct {
	Creator anyvec.Creator
	Model   anyner.Tagger

	// Workers limits the number of batches evaluated at
	// once.
	// If it is 0, batches are evaluated one at a time.
	// The summary does not depend on Workers.
	Workers int
}

// Evaluate runs the model over every batch of a copy of
// it, so the position of it never changes.
// The copy is rewound rather than reset, so a shuffled
// iterator yields the same batches on every call and its
// Rand is left untouched.
//
// Batches are never regularized, and no gradients are
// computed.
// The summary averages the per-batch loss and accuracy
// with equal weight per batch.
// A batch without tokens counts as zero accuracy.
func (e *Evaluator) Evaluate(ctx context.Context, it *anydata.SerialIterator) (*Summary, error) {
	if it.Repeat {
		return nil, errors.New("evaluate: iterator must not repeat")
	}
	iter := it.Copy()
	iter.Rewind()

	var batches []*anyner.Batch
	for {
		b, err := iter.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, essentials.AddCtx("evaluate", err)
		}
		batches = append(batches, b)
	}

	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	losses := make([]float64, len(batches))
	accs := make([]float64, len(batches))
	for i, b := range batches {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, essentials.AddCtx("evaluate", err)
		}
		go func(i int, b *anyner.Batch) {
			defer sem.Release(1)
			m := totalCost(e.Creator, e.Model, b, false)
			losses[i] = m.LossValue()
			accs[i] = m.Accuracy()
		}(i, b)
	}
	if err := sem.Acquire(ctx, int64(workers)); err != nil {
		return nil, essentials.AddCtx("evaluate", err)
	}
	sem.Release(int64(workers))

	res := &Summary{Batches: len(batches)}
	if res.Batches == 0 {
		return res, nil
	}
	for i := range batches {
		res.Loss += losses[i]
		res.Accuracy += accs[i]
	}
	res.Loss /= float64(res.Batches)
	res.Accuracy /= float64(res.Batches)
	return res, nil
}
