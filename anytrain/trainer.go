// Package anytrain drives the training of a tagger: single
// optimization steps, evaluation passes, and the epoch
// loop with its reports and checkpoints.
package anytrain

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyner"
	"github.com/unixpickle/anyner/anydata"
	"github.com/unixpickle/anyner/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Trainer performs optimization steps on a tagger.
type Trainer struct {
	Creator anyvec.Creator
	Model   anyner.Tagger

	// Regularizer, if non-nil, is applied to the tokens of
	// every training batch.
	Regularizer *anyner.Regularizer

	// Clip, if non-nil, rescales each gradient before it is
	// passed to the Transformer.
	Clip *anysgd.Clip

	// Transformer, if non-nil, transforms each gradient
	// before the step.
	Transformer anysgd.Transformer

	// Rater determines the step size.
	Rater anysgd.Rater

	// Iteration counts the completed steps.
	Iteration int

	// These describe the last training batch.
	LastLoss     float64
	LastAccuracy float64
	LastTokens   int
}

// TotalCost runs the model on the batch from a fresh zero
// state and aggregates the loss and accuracy.
func (t *Trainer) TotalCost(b *anyner.Batch, train bool) *anyner.Metrics {
	return totalCost(t.Creator, t.Model, b, train)
}

// Gradient computes the gradient of the batch loss with
// respect to the model parameters.
// It also records the batch loss and accuracy.
func (t *Trainer) Gradient(b *anyner.Batch) anydiff.Grad {
	if t.Regularizer != nil {
		b = t.Regularizer.RegularizeBatch(b)
	}
	grad := anydiff.NewGrad(t.Model.Parameters()...)
	metrics := t.TotalCost(b, true)

	upstream := t.Creator.MakeVectorData(t.Creator.MakeNumericList([]float64{1}))
	metrics.Loss.Propagate(upstream, grad)

	t.LastLoss = metrics.LossValue()
	t.LastAccuracy = metrics.Accuracy()
	t.LastTokens = metrics.Total
	return grad
}

// StepBatch performs one optimization step on the batch.
// The epoch is passed to the Rater.
func (t *Trainer) StepBatch(b *anyner.Batch, epoch float64) {
	grad := t.Gradient(b)
	anysgd.Update(grad, t.Rater.Rate(epoch), t.Optimizer())
	t.Iteration++
}

// Optimizer returns the gradient transformations applied
// by StepBatch: clipping, if enabled, followed by the
// Transformer.
// An Adam transformer without Vars is bound to the
// model's parameters.
func (t *Trainer) Optimizer() anysgd.Chain {
	var res anysgd.Chain
	if t.Clip != nil {
		res = append(res, t.Clip)
	}
	if t.Transformer != nil {
		bindVars(t.Transformer, t.Model)
		res = append(res, t.Transformer)
	}
	return res
}

// Step fetches a batch from the source and performs one
// optimization step on it.
func (t *Trainer) Step(src anydata.Source) error {
	epoch := src.EpochDetail()
	b, err := src.Next()
	if err != nil {
		return essentials.AddCtx("training step", err)
	}
	t.StepBatch(b, epoch)
	return nil
}

func bindVars(tr anysgd.Transformer, model anyner.Tagger) {
	if adam, ok := tr.(*anysgd.Adam); ok && adam.Vars == nil {
		adam.Vars = model.Parameters()
	}
}

func totalCost(c anyvec.Creator, model anyner.Tagger, b *anyner.Batch,
	train bool) *anyner.Metrics {
	s := anyner.InitState(c, b.Len(), model.StateWidth())
	scores := model.Tag(s, b.Tokens(), b.Chars(), train)
	return anyner.Aggregate(c, scores, b.Labels(), model.NumTags())
}
