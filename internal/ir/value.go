package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface representing a JSON value in a payload.
// Only Null, String, Int, Float, Bool, Array, and Object implement this.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents a JSON null.
// Using an explicit type keeps nil out of arrays and objects.
type Null struct{}

func (Null) irValue() {}

// String represents a JSON string.
type String string

func (String) irValue() {}

// Int represents an integral JSON number.
type Int int64

func (Int) irValue() {}

// Float represents a fractional JSON number (prices, sizes).
type Float float64

func (Float) irValue() {}

// Bool represents a JSON boolean.
type Bool bool

func (Bool) irValue() {}

// Array represents an ordered sequence of values.
type Array []Value

func (Array) irValue() {}

// Object represents a mapping of names to values.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) irValue() {}

// Pair is a key-value pair for typed Object construction.
type Pair struct {
	Key   string
	Value Value
}

// O is a shorthand for Pair.
// Example: NewObject(O("produto_a_id", String("E1")), O("produto_b_id", String("E2")))
func O(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// NewObject creates an Object from typed key-value pairs.
// Later pairs overwrite earlier pairs with the same key.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// NewArray creates an Array from values.
// The result is never nil, so it always serializes as [] rather than null.
func NewArray(vals ...Value) Array {
	if vals == nil {
		return Array{}
	}
	return Array(vals)
}

// Strings creates an Array of String values.
func Strings(ss ...string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for some inputs.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
func (obj Object) MarshalJSON() ([]byte, error) {
	return Marshal(obj)
}

// MarshalJSON implements json.Marshaler for Array.
// A nil Array serializes as [] so positional argument lists are always present.
func (arr Array) MarshalJSON() ([]byte, error) {
	return Marshal(arr)
}

// FromAny converts a decoded Go value (from YAML, CUE or encoding/json) into a Value.
//
// Accepted inputs: nil, bool, string, all integer kinds, float32/float64,
// json.Number, []any, map[string]any, map[any]any with string keys, and
// values that already implement Value. Anything else is rejected so that a
// malformed script fails before any request is sent.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val)
	case float32:
		return fromFloat(float64(val))
	case float64:
		return fromFloat(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		return fromFloat(f)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	case []string:
		return Strings(val...), nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = converted
		}
		return obj, nil
	case map[any]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v: keys must be strings, got %T", k, k)
			}
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			obj[key] = converted
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v is not valid JSON", f)
	}
	return Float(f), nil
}
