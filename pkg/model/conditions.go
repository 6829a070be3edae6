package model

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// Condition is one key/value pair of a measurement's conditions.
type Condition struct {
	Key   string
	Value string
}

// Conditions is an ordered mapping. It decodes from a JSON object and keeps
// the key order of the input document.
type Conditions []Condition

// Get returns the value stored for key.
func (c Conditions) Get(key string) (string, bool) {
	for _, kv := range c {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Keys returns the condition keys in insertion order.
func (c Conditions) Keys() []string {
	keys := make([]string, len(c))
	for i, kv := range c {
		keys[i] = kv.Key
	}
	return keys
}

// UnmarshalJSON decodes a JSON object into ordered pairs. Non-string scalar
// values are rendered with their JSON text; a later duplicate key overwrites
// the earlier value in place.
func (c *Conditions) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("conditions: expected object, got %v", tok)
	}

	out := make(Conditions, 0, 4)
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("conditions: expected string key, got %v", keyTok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("conditions[%s]: %w", key, err)
		}
		value, err := conditionValue(raw)
		if err != nil {
			return fmt.Errorf("conditions[%s]: %w", key, err)
		}
		if i, seen := index[key]; seen {
			out[i].Value = value
			continue
		}
		index[key] = len(out)
		out = append(out, Condition{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = out
	return nil
}

// MarshalJSON encodes the pairs as a JSON object in stored order.
func (c Conditions) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func conditionValue(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", raw)
	}
}
