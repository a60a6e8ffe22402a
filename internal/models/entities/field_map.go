package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldMap maps left-task field names to right-task field names, preserving
// insertion order. Left fields are unique keys; several left fields may point
// at the same right field.
type FieldMap struct {
	keys   []string
	values map[string]string
}

// FieldPair is one left->right correspondence.
type FieldPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

func NewFieldMap(pairs ...FieldPair) *FieldMap {
	fm := &FieldMap{values: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		fm.Set(p.Left, p.Right)
	}
	return fm
}

// Set adds or replaces a pair. Replacing keeps the key's original position.
func (fm *FieldMap) Set(left, right string) {
	if fm.values == nil {
		fm.values = make(map[string]string)
	}
	if _, exists := fm.values[left]; !exists {
		fm.keys = append(fm.keys, left)
	}
	fm.values[left] = right
}

func (fm *FieldMap) Get(left string) (string, bool) {
	if fm == nil {
		return "", false
	}
	v, ok := fm.values[left]
	return v, ok
}

func (fm *FieldMap) Has(left string) bool {
	_, ok := fm.Get(left)
	return ok
}

// Delete removes a pair, reporting whether it existed.
func (fm *FieldMap) Delete(left string) bool {
	if fm == nil {
		return false
	}
	if _, ok := fm.values[left]; !ok {
		return false
	}
	delete(fm.values, left)
	for i, k := range fm.keys {
		if k == left {
			fm.keys = append(fm.keys[:i], fm.keys[i+1:]...)
			break
		}
	}
	return true
}

func (fm *FieldMap) Len() int {
	if fm == nil {
		return 0
	}
	return len(fm.keys)
}

// Keys returns the left fields in insertion order.
func (fm *FieldMap) Keys() []string {
	if fm == nil {
		return nil
	}
	out := make([]string, len(fm.keys))
	copy(out, fm.keys)
	return out
}

// Values returns the right fields in key order, duplicates included.
func (fm *FieldMap) Values() []string {
	if fm == nil {
		return nil
	}
	out := make([]string, 0, len(fm.keys))
	for _, k := range fm.keys {
		out = append(out, fm.values[k])
	}
	return out
}

func (fm *FieldMap) Pairs() []FieldPair {
	if fm == nil {
		return nil
	}
	out := make([]FieldPair, 0, len(fm.keys))
	for _, k := range fm.keys {
		out = append(out, FieldPair{Left: k, Right: fm.values[k]})
	}
	return out
}

// KeysForValue returns every left field currently mapped to right.
func (fm *FieldMap) KeysForValue(right string) []string {
	if fm == nil {
		return nil
	}
	var out []string
	for _, k := range fm.keys {
		if fm.values[k] == right {
			out = append(out, k)
		}
	}
	return out
}

// KeyForValue returns the left field mapped to right when exactly one exists.
func (fm *FieldMap) KeyForValue(right string) (string, bool) {
	keys := fm.KeysForValue(right)
	if len(keys) != 1 {
		return "", false
	}
	return keys[0], true
}

func (fm *FieldMap) Clone() *FieldMap {
	if fm == nil {
		return NewFieldMap()
	}
	return NewFieldMap(fm.Pairs()...)
}

// MarshalJSON writes the map as a JSON object in insertion order.
func (fm FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range fm.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(fm.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the document's key order.
func (fm *FieldMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*fm = FieldMap{values: map[string]string{}}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("field map: expected object, got %v", tok)
	}

	out := FieldMap{values: map[string]string{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("field map: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("field map: value for %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*fm = out
	return nil
}
