package anyner

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestRegularizeIdentity(t *testing.T) {
	r := &Regularizer{
		Singletons: NewSingletonTable(7, 8),
		Coin:       ConstCoin(true),
	}
	for i := 0; i < 20; i++ {
		tokens := make([]int, rand.Intn(10))
		for j := range tokens {
			tokens[j] = 1 + rand.Intn(6)
		}
		if actual := r.Regularize(tokens); !reflect.DeepEqual(actual, tokens) {
			t.Errorf("expected %v but got %v", tokens, actual)
		}
	}
}

func TestRegularizeScenario(t *testing.T) {
	r := &Regularizer{Singletons: NewSingletonTable(), Coin: ConstCoin(true)}
	if actual := r.Regularize([]int{1, 2, 3}); !reflect.DeepEqual(actual, []int{1, 2, 3}) {
		t.Errorf("unexpected result: %v", actual)
	}
}

func TestRegularizeAlways(t *testing.T) {
	r := &Regularizer{
		Singletons: NewSingletonTable(2),
		UnknownID:  DefaultUnknownID,
		Coin:       ConstCoin(true),
	}
	in := []int{2, 1, 2, 3, 2}
	actual := r.Regularize(in)
	expected := []int{0, 1, 0, 3, 0}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
	if !reflect.DeepEqual(in, []int{2, 1, 2, 3, 2}) {
		t.Error("input was modified")
	}
}

func TestRegularizeNever(t *testing.T) {
	r := &Regularizer{Singletons: NewSingletonTable(2), Coin: ConstCoin(false)}
	in := []int{2, 2, 5}
	if actual := r.Regularize(in); !reflect.DeepEqual(actual, in) {
		t.Errorf("expected %v but got %v", in, actual)
	}
}

func TestRegularizeEmpty(t *testing.T) {
	r := &Regularizer{Singletons: NewSingletonTable(1), Coin: ConstCoin(true)}
	if actual := r.Regularize([]int{}); len(actual) != 0 {
		t.Errorf("expected empty result but got %v", actual)
	}
}

func TestRegularizeFresh(t *testing.T) {
	r := &Regularizer{
		Singletons: NewSingletonTable(4),
		UnknownID:  9,
		Coin:       FairCoin{Rand: rand.New(rand.NewSource(1337))},
	}
	tokens := make([]int, 2000)
	for i := range tokens {
		tokens[i] = 4
	}
	var replaced int
	for _, x := range r.Regularize(tokens) {
		if x == 9 {
			replaced++
		} else if x != 4 {
			t.Fatalf("unexpected token %d", x)
		}
	}
	if replaced < 850 || replaced > 1150 {
		t.Errorf("replacement rate too far from 0.5: %d/2000", replaced)
	}
}

func TestRegularizeBatch(t *testing.T) {
	r := &Regularizer{Singletons: NewSingletonTable(3), Coin: ConstCoin(true)}
	chars := [][]int{{1}, {2, 3}}
	b := &Batch{Examples: []*Example{
		{Tokens: []int{3, 5}, Chars: chars, Labels: []int{1, 0}},
	}}
	res := r.RegularizeBatch(b)
	if !reflect.DeepEqual(res.Examples[0].Tokens, []int{0, 5}) {
		t.Errorf("unexpected tokens: %v", res.Examples[0].Tokens)
	}
	if !reflect.DeepEqual(b.Examples[0].Tokens, []int{3, 5}) {
		t.Error("original batch was modified")
	}
	if !reflect.DeepEqual(res.Examples[0].Labels, []int{1, 0}) ||
		!reflect.DeepEqual(res.Examples[0].Chars, chars) {
		t.Error("labels or chars changed")
	}
}
