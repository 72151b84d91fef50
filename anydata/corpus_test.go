package anydata

import (
	"reflect"
	"strings"
	"testing"

	"github.com/unixpickle/anyner"
)

const testCoNLL = `-DOCSTART- -X- O O

EU NNP I-NP B-ORG
rejects VBZ I-VP O
EU NNP I-NP B-ORG

Peter NNP I-NP B-PER
`

func TestReadCoNLL(t *testing.T) {
	sentences, err := ReadCoNLL(strings.NewReader(testCoNLL))
	if err != nil {
		t.Fatal(err)
	}
	expected := []*Sentence{
		{Words: []string{"EU", "rejects", "EU"}, Tags: []string{"B-ORG", "O", "B-ORG"}},
		{Words: []string{"Peter"}, Tags: []string{"B-PER"}},
	}
	if !reflect.DeepEqual(sentences, expected) {
		t.Errorf("expected %v but got %v", expected, sentences)
	}
}

func TestReadCoNLLMissingTag(t *testing.T) {
	if _, err := ReadCoNLL(strings.NewReader("word\n")); err == nil {
		t.Error("expected an error")
	}
}

func TestBuildCorpus(t *testing.T) {
	train, err := ReadCoNLL(strings.NewReader(testCoNLL))
	if err != nil {
		t.Fatal(err)
	}
	dev := []*Sentence{{Words: []string{"Paris", "EU"}, Tags: []string{"B-LOC", "B-ORG"}}}
	corpus, err := BuildCorpus(train, dev, true)
	if err != nil {
		t.Fatal(err)
	}
	if corpus.Words.Len() != 4 {
		t.Errorf("expected 4 words but got %d", corpus.Words.Len())
	}
	if id, _ := corpus.Words.ID(UnknownWord); id != anyner.DefaultUnknownID {
		t.Errorf("unknown word has id %d", id)
	}
	eu, _ := corpus.Words.ID("EU")
	rejects, _ := corpus.Words.ID("rejects")
	peter, _ := corpus.Words.ID("Peter")
	if corpus.Singletons.Contains(eu) || !corpus.Singletons.Contains(rejects) ||
		!corpus.Singletons.Contains(peter) || corpus.Singletons.Len() != 2 {
		t.Error("unexpected singleton table")
	}
	if corpus.Tags.Len() != 4 {
		t.Errorf("expected 4 tags but got %d", corpus.Tags.Len())
	}
	devEx := corpus.Dev[0]
	if devEx.Tokens[0] != anyner.DefaultUnknownID || devEx.Tokens[1] != eu {
		t.Errorf("unexpected dev tokens %v", devEx.Tokens)
	}
	if len(devEx.Chars) != 2 || len(devEx.Chars[0]) != 5 {
		t.Errorf("unexpected dev characters %v", devEx.Chars)
	}
	if err := devEx.Validate(true); err != nil {
		t.Error(err)
	}
	if len(Tiny(corpus.Train, 1)) != 1 || len(Tiny(corpus.Train, 10)) != 2 {
		t.Error("unexpected Tiny result")
	}
}
