package draft

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cds-snc/notification-admin-sub002/internal/models"
)

// Values is an insertion-ordered map of placeholder name to value. Keys are
// matched by their normalised form; the first spelling set is kept.
type Values struct {
	keys []string
	vals map[string]string
}

func NewValues() *Values {
	return &Values{vals: make(map[string]string)}
}

func (v *Values) init() {
	if v.vals == nil {
		v.vals = make(map[string]string)
	}
}

// Set stores value under name, keeping the original position on overwrite.
func (v *Values) Set(name, value string) {
	v.init()
	key := models.NormaliseKey(name)
	if _, ok := v.vals[key]; !ok {
		v.keys = append(v.keys, name)
	}
	v.vals[key] = value
}

func (v *Values) Get(name string) (string, bool) {
	if v == nil || v.vals == nil {
		return "", false
	}
	val, ok := v.vals[models.NormaliseKey(name)]
	return val, ok
}

func (v *Values) Has(name string) bool {
	_, ok := v.Get(name)
	return ok
}

// Keys returns names in the order they were first set.
func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.keys)
}

// Clear empties the map.
func (v *Values) Clear() {
	v.keys = nil
	v.vals = make(map[string]string)
}

// Map returns a copy keyed by normalised name.
func (v *Values) Map() map[string]string {
	out := make(map[string]string, v.Len())
	if v == nil {
		return out
	}
	for k, val := range v.vals {
		out[k] = val
	}
	return out
}

// MarshalJSON writes a JSON object with keys in insertion order.
func (v Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range v.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.vals[models.NormaliseKey(name)])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping its key order.
func (v *Values) UnmarshalJSON(data []byte) error {
	v.Clear()
	if string(data) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("placeholder values: expected object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("placeholder values: expected string key")
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("placeholder values: %s: %w", name, err)
		}
		v.Set(name, value)
	}
	_, err = dec.Token()
	return err
}
