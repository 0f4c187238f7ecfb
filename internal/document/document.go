// Package document models the tree structure of target configuration
// files: mapping nodes that preserve key insertion order, sequence
// nodes, and scalar leaves. Documents are loaded from comment-tolerant
// JSON, patched at expanded address paths, and written back with stable
// indentation.
package document

// Map is an insertion-ordered mapping node. Setting an existing key
// replaces its value in place; new keys append to the key order.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty mapping node.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key, appending the key to the insertion order
// when it is new.
func (m *Map) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Keys returns the keys in insertion order. The returned slice is
// shared; callers must not modify it.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.keys)
}

// Seq is a sequence node.
type Seq struct {
	items []any
}

// NewSeq creates a sequence node holding the given items.
func NewSeq(items ...any) *Seq {
	return &Seq{items: items}
}

// Len returns the number of items.
func (s *Seq) Len() int {
	return len(s.items)
}

// At returns the item at index i.
func (s *Seq) At(i int) any {
	return s.items[i]
}

// Append adds an item to the end of the sequence.
func (s *Seq) Append(item any) {
	s.items = append(s.items, item)
}
