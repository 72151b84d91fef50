package anyner

import "testing"

func TestNewBatchViolation(t *testing.T) {
	_, err := NewBatch([]*Example{
		{Tokens: []int{1}, Labels: []int{0}},
		{Tokens: []int{1, 2}, Labels: []int{0}},
	}, false)
	v, ok := err.(*DataContractViolation)
	if !ok {
		t.Fatalf("expected violation but got %v", err)
	}
	if v.Index != 1 {
		t.Errorf("expected index 1 but got %d", v.Index)
	}

	_, err = NewBatch([]*Example{
		{Tokens: []int{1, 2}, Chars: [][]int{{1}}, Labels: []int{0, 0}},
	}, true)
	if _, ok := err.(*DataContractViolation); !ok {
		t.Errorf("expected violation but got %v", err)
	}
}

func TestBatchAccessors(t *testing.T) {
	b, err := NewBatch([]*Example{
		{Tokens: []int{1, 2}, Chars: [][]int{{1}, {2, 3}}, Labels: []int{0, 1}},
		{Tokens: []int{3, 4, 5}, Chars: [][]int{{1}, {2}, {}}, Labels: []int{1, 1, 0}},
	}, true)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 2 || b.NumTokens() != 5 {
		t.Errorf("unexpected sizes: %d, %d", b.Len(), b.NumTokens())
	}
	if len(b.Chars()) != 2 || len(b.Chars()[1]) != 3 {
		t.Error("unexpected chars")
	}
	if len(b.Labels()[1]) != 3 || len(b.Tokens()[0]) != 2 {
		t.Error("unexpected labels or tokens")
	}

	wordOnly := &Batch{Examples: []*Example{{Tokens: []int{1}, Labels: []int{0}}}}
	if wordOnly.Chars() != nil {
		t.Error("expected nil chars")
	}
}

func TestParseVariant(t *testing.T) {
	for _, v := range []Variant{LSTM, BiLSTM, CharBiLSTM} {
		parsed, err := ParseVariant(v.String())
		if err != nil {
			t.Fatal(err)
		}
		if parsed != v {
			t.Errorf("expected %v but got %v", v, parsed)
		}
	}
	if _, err := ParseVariant("gru"); err == nil {
		t.Error("expected error")
	}
	if !LSTM.ClipsGradients() || !BiLSTM.ClipsGradients() || CharBiLSTM.ClipsGradients() {
		t.Error("unexpected clipping defaults")
	}
	if !CharBiLSTM.UsesChars() || BiLSTM.UsesChars() {
		t.Error("unexpected char usage")
	}
}
