package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is a JSON object whose key order survives a parse/serialize
// round trip. encoding/json's map type would shuffle unrelated template
// keys on output; this keeps them where the template author put them.
type Document struct {
	pairs []pair
}

type pair struct {
	key   string
	value json.RawMessage
}

// Get returns the raw value for key and whether it was present.
func (d *Document) Get(key string) (json.RawMessage, bool) {
	for _, p := range d.pairs {
		if p.key == key {
			return p.value, true
		}
	}
	return nil, false
}

// Set replaces the value for key in place, or appends the key if absent.
func (d *Document) Set(key string, value json.RawMessage) {
	for i, p := range d.pairs {
		if p.key == key {
			d.pairs[i].value = value
			return
		}
	}
	d.pairs = append(d.pairs, pair{key: key, value: value})
}

// Keys returns the keys in document order.
func (d *Document) Keys() []string {
	keys := make([]string, len(d.pairs))
	for i, p := range d.pairs {
		keys[i] = p.key
	}
	return keys
}

// Len returns the number of keys.
func (d *Document) Len() int {
	return len(d.pairs)
}

// UnmarshalJSON parses a JSON object, recording key order.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	d.pairs = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		d.pairs = append(d.pairs, pair{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON serializes the object with its recorded key order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range d.pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var compact bytes.Buffer
		if err := json.Compact(&compact, p.value); err != nil {
			return nil, fmt.Errorf("invalid value for key %q: %w", p.key, err)
		}
		buf.Write(compact.Bytes())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
