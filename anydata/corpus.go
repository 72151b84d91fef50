package anydata

import (
	"fmt"

	"github.com/unixpickle/anyner"
)

// A Corpus holds the encoded training and development
// examples along with the dictionaries used to encode
// them.
type Corpus struct {
	Words *Vocab
	Chars *Vocab
	Tags  *Vocab

	// Singletons contains the ids of the words which occur
	// exactly once in the training sentences.
	Singletons anyner.SingletonTable

	Train []*anyner.Example
	Dev   []*anyner.Example
}

// BuildCorpus creates dictionaries from the training
// sentences and encodes both splits.
//
// Words and characters that only appear in dev map to the
// unknown id.
// Tags of both splits are added to the tag dictionary.
// If useChars is false, the examples carry no characters.
func BuildCorpus(train, dev []*Sentence, useChars bool) (*Corpus, error) {
	res := &Corpus{
		Words: NewVocab(UnknownWord),
		Chars: NewVocab(UnknownWord),
		Tags:  NewVocab(),
	}
	counts := map[int]int{}
	for _, s := range train {
		if len(s.Words) != len(s.Tags) {
			return nil, fmt.Errorf("build corpus: %d words but %d tags",
				len(s.Words), len(s.Tags))
		}
		for _, w := range s.Words {
			counts[res.Words.Add(w)]++
			for _, ch := range w {
				res.Chars.Add(string(ch))
			}
		}
	}
	for _, split := range [][]*Sentence{train, dev} {
		for _, s := range split {
			for _, t := range s.Tags {
				res.Tags.Add(t)
			}
		}
	}

	var singletons []int
	for id, count := range counts {
		if count == 1 && id != anyner.DefaultUnknownID {
			singletons = append(singletons, id)
		}
	}
	res.Singletons = anyner.NewSingletonTable(singletons...)

	var err error
	if res.Train, err = res.Encode(train, useChars); err != nil {
		return nil, err
	}
	if res.Dev, err = res.Encode(dev, useChars); err != nil {
		return nil, err
	}
	return res, nil
}

// Encode converts sentences into examples using the
// corpus dictionaries.
func (c *Corpus) Encode(sentences []*Sentence, useChars bool) ([]*anyner.Example, error) {
	res := make([]*anyner.Example, len(sentences))
	for i, s := range sentences {
		if len(s.Words) != len(s.Tags) {
			return nil, &anyner.DataContractViolation{
				Index:  i,
				Reason: fmt.Sprintf("%d words but %d tags", len(s.Words), len(s.Tags)),
			}
		}
		ex := &anyner.Example{
			Tokens: make([]int, len(s.Words)),
			Labels: make([]int, len(s.Tags)),
		}
		for j, w := range s.Words {
			ex.Tokens[j] = c.Words.IDOrUnknown(w)
		}
		for j, t := range s.Tags {
			id, ok := c.Tags.ID(t)
			if !ok {
				return nil, fmt.Errorf("encode sentence %d: unknown tag %q", i, t)
			}
			ex.Labels[j] = id
		}
		if useChars {
			ex.Chars = make([][]int, len(s.Words))
			for j, w := range s.Words {
				for _, ch := range w {
					ex.Chars[j] = append(ex.Chars[j], c.Chars.IDOrUnknown(string(ch)))
				}
			}
		}
		res[i] = ex
	}
	return res, nil
}

// Tiny returns at most n examples.
func Tiny(examples []*anyner.Example, n int) []*anyner.Example {
	if len(examples) <= n {
		return examples
	}
	return examples[:n]
}
