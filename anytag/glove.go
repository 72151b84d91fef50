package anytag

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/unixpickle/essentials"
)

// LoadGloVe reads whitespace-separated word vectors and
// copies the vector of every word in vocab into the
// corresponding row of e.
//
// Each line is a word followed by e.Dim components.
// Words missing from vocab are skipped, as are rows of
// e which have no vector in r.
// It returns the number of rows which were set.
func LoadGloVe(r io.Reader, vocab map[string]int, e *Embedding) (int, error) {
	data := vectorData(e)
	count := e.Count()
	set := map[int]bool{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<16), 1<<24)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		id, ok := vocab[fields[0]]
		if !ok || id < 0 || id >= count {
			continue
		}
		if len(fields)-1 != e.Dim {
			return 0, fmt.Errorf("load GloVe: line %d: expected %d components but got %d",
				lineNum, e.Dim, len(fields)-1)
		}
		for j, field := range fields[1:] {
			x, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return 0, essentials.AddCtx(fmt.Sprintf("load GloVe: line %d", lineNum), err)
			}
			data[id*e.Dim+j] = x
		}
		set[id] = true
	}
	if err := scanner.Err(); err != nil {
		return 0, essentials.AddCtx("load GloVe", err)
	}
	c := e.Vectors.Vector.Creator()
	e.Vectors.Vector.SetData(c.MakeNumericList(data))
	return len(set), nil
}

func vectorData(e *Embedding) []float64 {
	switch data := e.Vectors.Vector.Data().(type) {
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	case []float64:
		return append([]float64{}, data...)
	default:
		panic(fmt.Sprintf("unsupported numeric list type: %T", data))
	}
}
