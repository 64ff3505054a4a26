package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// OrderedMap is a JSON/BSON object that remembers the insertion order of its
// top-level keys. The orchestrator's schema-bound response reordering
// (spec.md §4.G step 9, §8 invariant) is only observable if the result type
// itself preserves key order end to end — plain Go maps do not.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]any)}
}

// Set appends key with value, or updates value in place if key already exists
// (preserving its original position).
func (m *OrderedMap) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it was present.
func (m *OrderedMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order. Do not mutate the result.
func (m *OrderedMap) Keys() []string {
	return m.keys
}

// Len returns the number of keys.
func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// Clone returns a deep-enough copy: same key order, same top-level value
// references (sufficient for the "editable copy" semantics of
// updated_llm_result, spec.md §3 LLM Result).
func (m *OrderedMap) Clone() *OrderedMap {
	clone := &OrderedMap{
		keys:   append([]string(nil), m.keys...),
		values: make(map[string]any, len(m.values)),
	}
	for k, v := range m.values {
		clone.values[k] = v
	}
	return clone
}

// Reordered returns a new OrderedMap whose keys follow schemaOrder first (for
// any key present in m), followed by any of m's remaining keys in their
// original order (spec.md §4.G step 9 / §8 invariant).
func (m *OrderedMap) Reordered(schemaOrder []string) *OrderedMap {
	out := NewOrderedMap()
	seen := make(map[string]bool, len(m.keys))

	for _, k := range schemaOrder {
		if v, ok := m.values[k]; ok {
			out.Set(k, v)
			seen[k] = true
		}
	}
	for _, k := range m.keys {
		if !seen[k] {
			out.Set(k, m.values[k])
		}
	}
	return out
}

// MarshalJSON emits the object with keys in insertion order.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object, preserving the order keys appear in the
// input (not Go map iteration order).
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("ordered map: expected JSON object")
	}

	m.keys = nil
	m.values = make(map[string]any)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("ordered map: expected string key")
		}

		var val any
		if err := dec.Decode(&val); err != nil {
			return err
		}
		m.Set(key, val)
	}

	if _, err := dec.Token(); err != nil { // consume closing '}'
		return err
	}
	return nil
}

// MarshalBSONValue stores the map as an ordered bson.D document.
func (m *OrderedMap) MarshalBSONValue() (byte, []byte, error) {
	d := make(bson.D, 0, len(m.keys))
	for _, k := range m.keys {
		d = append(d, bson.E{Key: k, Value: m.values[k]})
	}
	return bson.MarshalValue(d)
}

// UnmarshalBSONValue parses an ordered bson.D document, preserving field order.
func (m *OrderedMap) UnmarshalBSONValue(t byte, data []byte) error {
	var d bson.D
	if err := bson.UnmarshalValue(t, data, &d); err != nil {
		return err
	}
	m.keys = nil
	m.values = make(map[string]any, len(d))
	for _, e := range d {
		m.Set(e.Key, e.Value)
	}
	return nil
}

// KeySet returns the key set as an unordered set, for equality comparisons
// (spec.md §8 invariant: updated_llm_result.keys() == llm_result.keys()).
func (m *OrderedMap) KeySet() map[string]struct{} {
	set := make(map[string]struct{}, len(m.keys))
	for _, k := range m.keys {
		set[k] = struct{}{}
	}
	return set
}

// SameKeySet reports whether m and other contain exactly the same keys
// (order-independent).
func (m *OrderedMap) SameKeySet(other *OrderedMap) bool {
	if m.Len() != other.Len() {
		return false
	}
	a := m.KeySet()
	for k := range other.KeySet() {
		if _, ok := a[k]; !ok {
			return false
		}
	}
	return true
}
