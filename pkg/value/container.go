package value

// Array is an ordered sequence of Value. It is a reference type: copying
// an Array header aliases the same backing storage, which is how Ref
// shares data without a deep copy.
type Array []Value

// Map is a string-keyed mapping to Value whose iteration order is
// significant for JSON output (spec.md section 3) even though it is
// semantically just a mapping. A plain Go map can't preserve insertion
// order, so Map keeps an explicit key slice alongside an index for O(1)
// lookup.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewOrderedMap returns an empty Map ready for use.
func NewOrderedMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// Set inserts or overwrites the value at key, preserving the position of
// an existing key and appending new keys in insertion order.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Get returns the value at key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// GetOr returns the value at key, or dft if absent.
func (m *Map) GetOr(key string, dft Value) Value {
	if v, ok := m.vals[key]; ok {
		return v
	}
	return dft
}

// Delete removes key, if present.
func (m *Map) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.vals[key]
	return ok
}

// Keys returns the keys in insertion order. The returned slice must not be
// mutated by the caller.
func (m *Map) Keys() []string { return m.keys }

// Len reports the number of entries.
func (m *Map) Len() int { return len(m.keys) }
