// Package mergenode is the value model shared by the structured-text
// mergers: a closed set of node variants (Scalar, Mapping, Sequence and
// Absent) that callers dispatch on with a type switch.
package mergenode

// Node is one of Scalar, *Mapping, *Sequence or Absent.
type Node interface {
	node()
}

// Scalar is a leaf value kept as its source text.
type Scalar struct {
	Text   string
	Quoted bool
}

// Mapping is an ordered set of unique keys.
type Mapping struct {
	entries []Entry
}

// Entry is one key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value Node
}

// Sequence is an ordered list of nodes.
type Sequence struct {
	Items []Node
}

// Absent marks a deleted or never-present node. It is removed by Prune.
type Absent struct{}

func (Scalar) node()    {}
func (*Mapping) node()  {}
func (*Sequence) node() {}
func (Absent) node()    {}

// Str returns a quoted string scalar.
func Str(s string) Scalar {
	return Scalar{Text: s, Quoted: true}
}

// Lit returns a bare literal scalar (number, boolean, identifier).
func Lit(s string) Scalar {
	return Scalar{Text: s}
}

// NewMapping builds a mapping from entries; a repeated key keeps the last
// value at the position of its first occurrence.
func NewMapping(entries ...Entry) *Mapping {
	m := &Mapping{}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}

	return m
}

// NewSequence builds a sequence.
func NewSequence(items ...Node) *Sequence {
	return &Sequence{Items: items}
}

// Len is the number of entries.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Entries returns the entries in order. The slice must not be modified.
func (m *Mapping) Entries() []Entry {
	return m.entries
}

// Keys returns the keys in order.
func (m *Mapping) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}

	return keys
}

func (m *Mapping) index(key string) int {
	for i, e := range m.entries {
		if e.Key == key {
			return i
		}
	}

	return -1
}

// Get returns the value under key.
func (m *Mapping) Get(key string) (Node, bool) {
	if i := m.index(key); i >= 0 {
		return m.entries[i].Value, true
	}

	return nil, false
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	return m.index(key) >= 0
}

// Set replaces the value under key in place, or appends a new entry.
func (m *Mapping) Set(key string, v Node) {
	if i := m.index(key); i >= 0 {
		m.entries[i].Value = v
		return
	}

	m.entries = append(m.entries, Entry{Key: key, Value: v})
}

// Delete removes key if present.
func (m *Mapping) Delete(key string) {
	if i := m.index(key); i >= 0 {
		m.entries = append(m.entries[:i], m.entries[i+1:]...)
	}
}

// Len is the number of items.
func (s *Sequence) Len() int {
	return len(s.Items)
}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	switch v := n.(type) {
	case *Mapping:
		out := &Mapping{entries: make([]Entry, len(v.entries))}
		for i, e := range v.entries {
			out.entries[i] = Entry{Key: e.Key, Value: Clone(e.Value)}
		}

		return out
	case *Sequence:
		out := &Sequence{Items: make([]Node, len(v.Items))}
		for i, item := range v.Items {
			out.Items[i] = Clone(item)
		}

		return out
	default:
		return n
	}
}

// IsAbsent reports whether n is missing or Absent.
func IsAbsent(n Node) bool {
	if n == nil {
		return true
	}

	_, ok := n.(Absent)

	return ok
}

// Prune removes Absent entries and items in place, recursively. Containers emptied
// by pruning are kept. Pruning an Absent root yields nil.
func Prune(n Node) Node {
	switch v := n.(type) {
	case Absent:
		return nil
	case *Mapping:
		kept := v.entries[:0]

		for _, e := range v.entries {
			if IsAbsent(e.Value) {
				continue
			}

			e.Value = Prune(e.Value)
			kept = append(kept, e)
		}

		v.entries = kept

		return v
	case *Sequence:
		kept := v.Items[:0]

		for _, item := range v.Items {
			if IsAbsent(item) {
				continue
			}

			kept = append(kept, Prune(item))
		}

		v.Items = kept

		return v
	default:
		return n
	}
}

// Equal reports deep structural equality.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case Scalar:
		y, ok := b.(Scalar)
		return ok && x == y
	case Absent:
		return IsAbsent(b)
	case *Mapping:
		y, ok := b.(*Mapping)
		if !ok || x.Len() != y.Len() {
			return false
		}

		for i, e := range x.entries {
			if y.entries[i].Key != e.Key || !Equal(e.Value, y.entries[i].Value) {
				return false
			}
		}

		return true
	case *Sequence:
		y, ok := b.(*Sequence)
		if !ok || x.Len() != y.Len() {
			return false
		}

		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}

		return true
	default:
		return a == nil && IsAbsent(b)
	}
}

// Match reports whether data satisfies pattern. Container patterns match
// when every key (or index) they name exists in data and matches
// recursively; extra data is ignored. Scalar patterns require equality.
func Match(data, pattern Node) bool {
	switch p := pattern.(type) {
	case *Mapping:
		for _, e := range p.entries {
			v, ok := lookup(data, e.Key)
			if !ok || !Match(v, e.Value) {
				return false
			}
		}

		return true
	case *Sequence:
		d, ok := data.(*Sequence)
		if !ok || d.Len() < p.Len() {
			return false
		}

		for i, item := range p.Items {
			if !Match(d.Items[i], item) {
				return false
			}
		}

		return true
	default:
		return Equal(data, pattern)
	}
}

func lookup(data Node, key string) (Node, bool) {
	if m, ok := data.(*Mapping); ok {
		return m.Get(key)
	}

	return nil, false
}
