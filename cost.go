package anyner

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// DotCost computes per-token cross-entropy from log
// probabilities.
//
// It takes the dot product of each row of desired
// (one-hot) probabilities with the corresponding row of
// log probabilities, and negates it.
type DotCost struct{}

// Cost produces one cost per row.
func (d DotCost) Cost(desired, actual anydiff.Res, n int) anydiff.Res {
	comb := anydiff.Mul(desired, actual)
	dots := anydiff.SumCols(&anydiff.Matrix{
		Data: comb,
		Rows: n,
		Cols: comb.Output().Len() / n,
	})
	return anydiff.Scale(dots, dots.Output().Creator().MakeNumeric(-1))
}

// Metrics stores the result of aggregating a batch.
type Metrics struct {
	// Loss is the differentiable batch loss.
	// It is a sum over examples, each of which is a sum
	// over tokens, and has one component.
	Loss anydiff.Res

	// Correct is the number of correctly tagged tokens.
	Correct int

	// Total is the number of tokens in the batch.
	Total int
}

// Aggregate combines a batch of score sequences into a
// batch loss and a token-weighted accuracy.
//
// Sequence i of scores must be present for len(labels[i])
// timesteps, with numTags scores per timestep.
// The loss is the sum of every sequence's summed token
// loss, so empty sequences contribute nothing.
func Aggregate(c anyvec.Creator, scores anyseq.Seq, labels [][]int, numTags int) *Metrics {
	steps := scores.Output()
	stepLabels := TimestepLabels(steps, labels)
	res := &Metrics{}
	for t, b := range steps {
		if b.Packed.Len() != len(stepLabels[t])*numTags {
			panic(fmt.Sprintf("timestep %d: expected %d scores but got %d", t,
				len(stepLabels[t])*numTags, b.Packed.Len()))
		}
		res.Correct += NumCorrect(b.Packed, stepLabels[t], numTags)
		res.Total += len(stepLabels[t])
	}
	if len(steps) == 0 {
		res.Loss = anydiff.NewConst(c.MakeVector(1))
		return res
	}
	var t int
	costs := anyseq.Map(scores, func(v anydiff.Res, n int) anydiff.Res {
		desired := anydiff.NewConst(OneHot(c, stepLabels[t], numTags))
		t++
		return DotCost{}.Cost(desired, anydiff.LogSoftmax(v, numTags), n)
	})
	res.Loss = anyseq.Sum(costs)
	return res
}

// TimestepLabels regroups per-sequence labels by
// timestep, following the present maps of a batch.
//
// It panics if any sequence in the batch does not have
// exactly one label per timestep.
func TimestepLabels(steps []*anyseq.Batch, labels [][]int) [][]int {
	if len(steps) > 0 && len(steps[0].Present) != len(labels) {
		panic(fmt.Sprintf("%d score sequences but %d label sequences",
			len(steps[0].Present), len(labels)))
	}
	counts := make([]int, len(labels))
	res := make([][]int, len(steps))
	for t, b := range steps {
		for i, pres := range b.Present {
			if !pres {
				continue
			}
			if t >= len(labels[i]) {
				panic(fmt.Sprintf("sequence %d: more scores than its %d labels", i,
					len(labels[i])))
			}
			res[t] = append(res[t], labels[i][t])
			counts[i]++
		}
	}
	for i, l := range labels {
		if counts[i] != len(l) {
			panic(fmt.Sprintf("sequence %d: %d labels but %d scores", i, len(l), counts[i]))
		}
	}
	return res
}

// Accuracy returns the fraction of correct tokens.
// It is 0 for a batch without tokens.
func (m *Metrics) Accuracy() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Correct) / float64(m.Total)
}

// LossValue returns the numerical value of m.Loss.
func (m *Metrics) LossValue() float64 {
	return NumericFloat(anyvec.Sum(m.Loss.Output()))
}

// OneHot packs one-hot rows for the labels.
func OneHot(c anyvec.Creator, labels []int, numTags int) anyvec.Vector {
	data := make([]float64, len(labels)*numTags)
	for i, l := range labels {
		if l < 0 || l >= numTags {
			panic(fmt.Sprintf("label %d out of range [0, %d)", l, numTags))
		}
		data[i*numTags+l] = 1
	}
	return c.MakeVectorData(c.MakeNumericList(data))
}

// NumCorrect counts the rows of scores whose arg-max is
// the corresponding label.
func NumCorrect(scores anyvec.Vector, labels []int, numTags int) int {
	var n int
	for i, l := range labels {
		row := scores.Slice(i*numTags, (i+1)*numTags)
		if anyvec.MaxIndex(row) == l {
			n++
		}
	}
	return n
}

// NumericFloat converts a float32 or float64 numeric to a
// float64.
// Other numeric types produce 0.
func NumericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
