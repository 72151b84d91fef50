package anytrain

import (
	"context"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/unixpickle/anyner"
	"github.com/unixpickle/anyner/anydata"
	"github.com/unixpickle/anyner/anysgd"
	"github.com/unixpickle/anyner/anytag"
	"github.com/unixpickle/anyvec/anyvec64"
)

func testCorpus() []*anyner.Example {
	return []*anyner.Example{
		{Tokens: []int{1, 2, 3}, Labels: []int{0, 1, 0}},
		{Tokens: []int{4, 1}, Labels: []int{2, 0}},
		{Tokens: []int{3}, Labels: []int{0}},
		{Tokens: []int{2, 4, 4, 1}, Labels: []int{1, 2, 2, 0}},
	}
}

func TestTrainerLearns(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	model, err := anytag.New(c, anyner.BiLSTM, anytag.Dims{Vocab: 5, Tags: 3, Unit: 4})
	if err != nil {
		t.Fatal(err)
	}
	trainer := &Trainer{
		Creator:     c,
		Model:       model,
		Clip:        &anysgd.Clip{},
		Transformer: &anysgd.Adam{},
		Rater:       anysgd.ConstRater(0.05),
	}
	it := &anydata.SerialIterator{Examples: testCorpus(), BatchSize: 4, Repeat: true}
	if err := trainer.Step(it); err != nil {
		t.Fatal(err)
	}
	first := trainer.LastLoss
	for i := 0; i < 100; i++ {
		if err := trainer.Step(it); err != nil {
			t.Fatal(err)
		}
	}
	if trainer.LastLoss >= first/2 {
		t.Errorf("loss went from %f to %f", first, trainer.LastLoss)
	}
	if trainer.LastTokens != 10 {
		t.Errorf("expected 10 tokens but got %d", trainer.LastTokens)
	}
	if trainer.Iteration != 101 {
		t.Errorf("expected 101 iterations but got %d", trainer.Iteration)
	}
}

func testCharCorpus() []*anyner.Example {
	return []*anyner.Example{
		{Tokens: []int{1, 2, 3}, Chars: [][]int{{1, 2}, {3}, {2, 2, 1}}, Labels: []int{0, 1, 0}},
		{Tokens: []int{4, 1}, Chars: [][]int{{3, 1}, {1, 2}}, Labels: []int{2, 0}},
		{Tokens: []int{3}, Chars: [][]int{{2, 2, 1}}, Labels: []int{0}},
		{Tokens: []int{2, 4, 4, 1}, Chars: [][]int{{3}, {3, 1}, {3, 1}, {1, 2}},
			Labels: []int{1, 2, 2, 0}},
	}
}

func TestTrainerLearnsChars(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	model, err := anytag.New(c, anyner.CharBiLSTM, anytag.Dims{Vocab: 5, Chars: 4, Tags: 3,
		Unit: 4})
	if err != nil {
		t.Fatal(err)
	}
	if w := model.StateWidth(); w != 4+anytag.CharFeatureWidth {
		t.Errorf("expected width %d but got %d", 4+anytag.CharFeatureWidth, w)
	}
	trainer := &Trainer{
		Creator: c,
		Model:   model,
		Regularizer: &anyner.Regularizer{
			Singletons: anyner.NewSingletonTable(3),
			Coin:       anyner.FairCoin{Rand: rand.New(rand.NewSource(1))},
		},
		Clip:        &anysgd.Clip{},
		Transformer: &anysgd.Adam{},
		Rater:       anysgd.ConstRater(0.02),
	}
	it := &anydata.SerialIterator{
		Examples:  testCharCorpus(),
		BatchSize: 4,
		Repeat:    true,
		UseChars:  true,
	}
	if err := trainer.Step(it); err != nil {
		t.Fatal(err)
	}
	first := trainer.LastLoss
	for i := 0; i < 40; i++ {
		if err := trainer.Step(it); err != nil {
			t.Fatal(err)
		}
	}
	if trainer.LastLoss >= first*0.75 {
		t.Errorf("loss went from %f to %f", first, trainer.LastLoss)
	}
	if trainer.LastTokens != 10 {
		t.Errorf("expected 10 tokens but got %d", trainer.LastTokens)
	}
}

func TestTrainerClip(t *testing.T) {
	example := &anyner.Example{Tokens: make([]int, 1000), Labels: make([]int, 1000)}
	for i := range example.Labels {
		example.Labels[i] = 1
	}
	b, err := anyner.NewBatch([]*anyner.Example{example}, false)
	if err != nil {
		t.Fatal(err)
	}

	// The loss gradient is (500, -500), with norm 500*sqrt(2).
	for _, clip := range []*anysgd.Clip{{Threshold: 5}, nil} {
		model := newConstTagger(0, 0)
		trainer := &Trainer{
			Creator: anyvec64.DefaultCreator{},
			Model:   model,
			Clip:    clip,
			Rater:   anysgd.ConstRater(0.1),
		}
		trainer.StepBatch(b, 0)
		scores := model.Scores.Vector.Data().([]float64)
		change := math.Hypot(scores[0], scores[1])
		expected := 0.1 * 500 * math.Sqrt2
		if clip != nil {
			expected = 0.1 * clip.Threshold
		}
		if math.Abs(change-expected) > 1e-8 {
			t.Errorf("clip %v: expected change %f but got %f", clip, expected, change)
		}
		if scores[0] >= 0 || scores[1] <= 0 {
			t.Errorf("clip %v: wrong direction %v", clip, scores)
		}
	}
}

func TestTrainerRegularizes(t *testing.T) {
	model := newConstTagger(1, 0)
	trainer := &Trainer{
		Creator: anyvec64.DefaultCreator{},
		Model:   model,
		Regularizer: &anyner.Regularizer{
			Singletons: anyner.NewSingletonTable(2),
			Coin:       anyner.ConstCoin(true),
		},
		Rater: anysgd.ConstRater(0.1),
	}
	b, err := anyner.NewBatch([]*anyner.Example{
		{Tokens: []int{2, 3, 2}, Labels: []int{0, 1, 0}},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	trainer.StepBatch(b, 0)
	if !reflect.DeepEqual(model.Seen[0], [][]int{{0, 3, 0}}) {
		t.Errorf("unexpected model input %v", model.Seen[0])
	}
	if !reflect.DeepEqual(b.Tokens(), [][]int{{2, 3, 2}}) {
		t.Error("batch was modified")
	}
	// d(loss)/d(score0) = 3*softmax0 - 2 > 0, so score0 drops.
	if x := model.Scores.Vector.Data().([]float64)[0]; x >= 1 {
		t.Errorf("expected score to decrease, got %f", x)
	}
}

func TestEvaluateMeanOfBatches(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	model := newConstTagger(1, 0)
	dev := &anydata.SerialIterator{
		Examples: []*anyner.Example{
			{Tokens: []int{1}, Labels: []int{0}},
			{Tokens: []int{1, 1, 1}, Labels: []int{1, 1, 1}},
		},
		BatchSize: 1,
	}
	eval := &Evaluator{Creator: c, Model: model, Workers: 2}
	summary, err := eval.Evaluate(context.Background(), dev)
	if err != nil {
		t.Fatal(err)
	}
	logZ := math.Log(math.E + 1)
	expectedLoss := ((logZ - 1) + 3*logZ) / 2
	if summary.Batches != 2 {
		t.Errorf("expected 2 batches but got %d", summary.Batches)
	}
	if math.Abs(summary.Loss-expectedLoss) > 1e-8 {
		t.Errorf("expected loss %f but got %f", expectedLoss, summary.Loss)
	}
	if math.Abs(summary.Accuracy-0.5) > 1e-8 {
		t.Errorf("expected accuracy 0.5 but got %f", summary.Accuracy)
	}
	for _, seen := range model.Seen {
		if len(seen) != 1 {
			t.Errorf("unexpected batch %v", seen)
		}
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	model, err := anytag.New(c, anyner.LSTM, anytag.Dims{Vocab: 5, Tags: 3, Unit: 3,
		Dropout: true})
	if err != nil {
		t.Fatal(err)
	}
	dev := &anydata.SerialIterator{Examples: testCorpus(), BatchSize: 3}
	eval := &Evaluator{Creator: c, Model: model}
	s1, err := eval.Evaluate(context.Background(), dev)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := eval.Evaluate(context.Background(), dev)
	if err != nil {
		t.Fatal(err)
	}
	if *s1 != *s2 {
		t.Errorf("summaries differ: %v and %v", s1, s2)
	}
	if s1.Batches != 2 {
		t.Errorf("expected 2 batches but got %d", s1.Batches)
	}
	if dev.Epoch() != 0 || dev.EpochDetail() != 0 {
		t.Error("evaluation moved the iterator")
	}
}

func TestEvaluateShuffled(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	model := newConstTagger(1, 0, 0.5)
	r := rand.New(rand.NewSource(42))
	twin := rand.New(rand.NewSource(42))
	dev := &anydata.SerialIterator{
		Examples:  testCorpus(),
		BatchSize: 3,
		Shuffle:   true,
		Rand:      r,
	}
	dev.Reset()
	twin.Perm(len(testCorpus()))

	eval := &Evaluator{Creator: c, Model: model}
	s1, err := eval.Evaluate(context.Background(), dev)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := eval.Evaluate(context.Background(), dev)
	if err != nil {
		t.Fatal(err)
	}
	if *s1 != *s2 {
		t.Errorf("summaries differ: %v and %v", s1, s2)
	}
	if len(model.Seen) != 4 {
		t.Fatalf("expected 4 batches but got %d", len(model.Seen))
	}
	if !reflect.DeepEqual(model.Seen[:2], model.Seen[2:]) {
		t.Errorf("batches differ: %v and %v", model.Seen[:2], model.Seen[2:])
	}
	if r.Int63() != twin.Int63() {
		t.Error("evaluation advanced the random source")
	}
}

func TestEvaluateWorkers(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	model, err := anytag.New(c, anyner.BiLSTM, anytag.Dims{Vocab: 5, Tags: 3, Unit: 3})
	if err != nil {
		t.Fatal(err)
	}
	dev := &anydata.SerialIterator{Examples: testCorpus(), BatchSize: 1}
	serial, err := (&Evaluator{Creator: c, Model: model}).Evaluate(context.Background(), dev)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := (&Evaluator{Creator: c, Model: model, Workers: 4}).Evaluate(
		context.Background(), dev)
	if err != nil {
		t.Fatal(err)
	}
	if serial.Batches != parallel.Batches ||
		math.Abs(serial.Loss-parallel.Loss) > 1e-8 ||
		math.Abs(serial.Accuracy-parallel.Accuracy) > 1e-8 {
		t.Errorf("expected %v but got %v", serial, parallel)
	}
}

func TestEvaluateEmpty(t *testing.T) {
	eval := &Evaluator{Creator: anyvec64.DefaultCreator{}, Model: newConstTagger(0, 0)}
	summary, err := eval.Evaluate(context.Background(), &anydata.SerialIterator{BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if *summary != (Summary{}) {
		t.Errorf("expected zero summary but got %v", summary)
	}
	_, err = eval.Evaluate(context.Background(),
		&anydata.SerialIterator{BatchSize: 2, Repeat: true})
	if err == nil {
		t.Error("expected an error for a repeating iterator")
	}
}
