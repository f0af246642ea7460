package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Marshal serializes a Value as compact JSON for a request body.
//
// Differences from json.Marshal:
// 1. Object keys are sorted by UTF-16 code units
// 2. No HTML escaping (< > & are NOT escaped)
// 3. A nil Array is written as [] and a nil Object as {}
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCanonical produces canonical JSON for golden snapshots.
// It behaves like Marshal and additionally NFC-normalizes every string,
// so that visually identical titles ("Cálculo") compare byte-equal.
//
// Plain Go values (map[string]any, []any, strings, numbers) are accepted and
// converted with FromAny first.
func MarshalCanonical(v any) ([]byte, error) {
	val, err := FromAny(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeValue(&buf, val, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse decodes JSON text into a Value.
// Integral numbers become Int, all other numbers become Float.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return FromAny(raw)
}

func writeValue(buf *bytes.Buffer, v Value, normalize bool) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		return writeString(buf, string(val), normalize)
	case Int:
		fmt.Fprintf(buf, "%d", int64(val))
	case Float:
		b, err := json.Marshal(float64(val))
		if err != nil {
			return err
		}
		buf.Write(b)
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem, normalize); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k, normalize); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeValue(buf, val[k], normalize); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
	return nil
}

// writeString writes a JSON string without HTML escaping.
func writeString(buf *bytes.Buffer, s string, normalize bool) error {
	if normalize {
		s = norm.NFC.String(s)
	}

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}

	// json.Encoder adds a trailing newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}
