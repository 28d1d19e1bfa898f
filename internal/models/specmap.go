package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SpecMap is an ordered key/value container for the open-ended specification
// fields scraped from detail pages (e.g. "Watt" -> "200 W"). Insertion order
// is preserved so serialized output is stable across runs.
type SpecMap struct {
	keys   []string
	values map[string]string
}

func NewSpecMap() *SpecMap {
	return &SpecMap{values: make(map[string]string)}
}

// Set inserts or overwrites a key. An overwritten key keeps its original
// position.
func (s *SpecMap) Set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// SetIfAbsent inserts the key only when it is not already present and reports
// whether the insert happened. This is how the extraction precedence rules
// are enforced: earlier, more specific sources win.
func (s *SpecMap) SetIfAbsent(key, value string) bool {
	if _, ok := s.values[key]; ok {
		return false
	}
	s.Set(key, value)
	return true
}

func (s *SpecMap) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *SpecMap) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *SpecMap) Len() int {
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *SpecMap) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (s *SpecMap) MarshalJSON() ([]byte, error) {
	if s == nil || len(s.keys) == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(s.values[k])
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

// UnmarshalJSON decodes a JSON object. Go maps do not preserve order, so the
// decoded key order follows the raw document.
func (s *SpecMap) UnmarshalJSON(data []byte) error {
	s.keys = nil
	s.values = make(map[string]string)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("specmap: expected a JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)

		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		s.Set(key, value)
	}

	_, err = dec.Token()
	return err
}
