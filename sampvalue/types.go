// Package sampvalue implements the SAMP value model: a recursive tree of
// strings, lists, and order-preserving mappings, the only data shapes legal
// on the wire in either SAMP profile.
//
// Scalars travel as strings by convention — integers as decimal text, floats
// excluding ±Inf/NaN, booleans as "0"/"1". This package offers helpers for
// those conventions (EncodeInt, EncodeFloat, EncodeBool and their decoders)
// but never applies them on its own; Validate only enforces the container
// shape and character-range rules shared by every SAMP value.
package sampvalue

// Value is a SAMP value: a string, a []Value (list), or a *Mapping.
// Any other dynamic type, including nil, is not a legal Value and will be
// rejected by Validate.
type Value = any

// Mapping is an ordered string-keyed map, as required by the SAMP data model
// (§3: "insertion order preserved"). Go's built-in map type cannot satisfy
// that on its own, so Mapping tracks key order alongside the values.
type Mapping struct {
	keys   []string
	values map[string]Value
}

// NewMapping returns an empty, ready-to-use Mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]Value)}
}

// Set inserts or updates key. Re-setting an existing key preserves its
// original position in Keys().
func (m *Mapping) Set(key string, value Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it was present.
func (m *Mapping) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// GetString is a convenience for the common case of fetching a string-valued
// entry; ok is false if the key is absent or not a string.
func (m *Mapping) GetString(key string) (string, bool) {
	v, ok := m.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetMapping is the Mapping-valued analogue of GetString.
func (m *Mapping) GetMapping(key string) (*Mapping, bool) {
	v, ok := m.values[key]
	if !ok {
		return nil, false
	}
	sub, ok := v.(*Mapping)
	return sub, ok
}

// Delete removes key, if present, preserving order of the remaining keys.
func (m *Mapping) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the mapping's keys in insertion order. The returned slice is
// owned by the caller.
func (m *Mapping) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries in m.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// Clone returns a deep copy of m.
func (m *Mapping) Clone() *Mapping {
	clone := NewMapping()
	for _, k := range m.keys {
		clone.Set(k, cloneValue(m.values[k]))
	}
	return clone
}

func cloneValue(v Value) Value {
	switch t := v.(type) {
	case *Mapping:
		return t.Clone()
	case []Value:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return t
	}
}
