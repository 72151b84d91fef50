package anydata

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/unixpickle/essentials"
)

const docStart = "-DOCSTART-"

// A Sentence is a tagged token sequence from a corpus.
type Sentence struct {
	Words []string
	Tags  []string
}

// ReadCoNLL reads sentences in the CoNLL column format.
//
// Each non-blank line holds a token in its first column
// and the token's tag in its last column.
// Blank lines separate sentences, and document markers
// are skipped.
func ReadCoNLL(r io.Reader) ([]*Sentence, error) {
	var res []*Sentence
	cur := &Sentence{}
	flush := func() {
		if len(cur.Words) > 0 {
			res = append(res, cur)
		}
		cur = &Sentence{}
	}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			flush()
			continue
		}
		if fields[0] == docStart {
			flush()
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("read CoNLL: line %d: missing tag column", lineNum)
		}
		cur.Words = append(cur.Words, fields[0])
		cur.Tags = append(cur.Tags, fields[len(fields)-1])
	}
	if err := scanner.Err(); err != nil {
		return nil, essentials.AddCtx("read CoNLL", err)
	}
	flush()
	return res, nil
}

// ReadCoNLLFile reads a CoNLL file from disk.
func ReadCoNLLFile(path string) ([]*Sentence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	res, err := ReadCoNLL(f)
	if err != nil {
		return nil, essentials.AddCtx(path, err)
	}
	return res, nil
}
