package anydata

import "fmt"

// UnknownWord is the entry reserved at id 0 of word and
// character vocabularies.
const UnknownWord = "<UNK>"

// A Vocab assigns dense ids to strings in the order they
// are first added.
type Vocab struct {
	ids   map[string]int
	names []string
}

// NewVocab creates a Vocab whose first entries are the
// reserved names.
func NewVocab(reserved ...string) *Vocab {
	v := &Vocab{ids: map[string]int{}}
	for _, name := range reserved {
		v.Add(name)
	}
	return v
}

// Add returns the id of name, adding it if necessary.
func (v *Vocab) Add(name string) int {
	if id, ok := v.ids[name]; ok {
		return id
	}
	id := len(v.names)
	v.ids[name] = id
	v.names = append(v.names, name)
	return id
}

// ID looks up the id of name.
func (v *Vocab) ID(name string) (int, bool) {
	id, ok := v.ids[name]
	return id, ok
}

// IDOrUnknown looks up the id of name, falling back to
// the id of UnknownWord.
// It panics if the Vocab has no unknown entry.
func (v *Vocab) IDOrUnknown(name string) int {
	if id, ok := v.ids[name]; ok {
		return id
	}
	id, ok := v.ids[UnknownWord]
	if !ok {
		panic(fmt.Sprintf("no id for %q and no unknown entry", name))
	}
	return id
}

// Name returns the string with the given id.
func (v *Vocab) Name(id int) string {
	return v.names[id]
}

// Len returns the number of entries.
func (v *Vocab) Len() int {
	return len(v.names)
}

// Map returns a copy of the name to id mapping.
func (v *Vocab) Map() map[string]int {
	res := make(map[string]int, len(v.ids))
	for k, id := range v.ids {
		res[k] = id
	}
	return res
}
