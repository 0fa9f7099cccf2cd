package resource

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ValueKind discriminates the variants of a [Value].
type ValueKind int

const (
	// KindNull represents an absent or explicit null value.
	KindNull ValueKind = iota
	// KindString represents a scalar string.
	KindString
	// KindNumber represents a scalar number (JSON numbers decode as float64).
	KindNumber
	// KindBool represents a scalar boolean.
	KindBool
	// KindMap represents a nested mapping of string keys to values.
	KindMap
	// KindSeq represents an ordered sequence of values.
	KindSeq
)

// Value is a tagged variant holding one node of a provider's raw configuration
// payload. Property bags have no fixed schema: a value is either a scalar
// (string, number, bool, null), a mapping, or a sequence. Traversals switch on
// Kind, which keeps the walk exhaustive and type-checked instead of relying on
// reflection over untyped interfaces.
//
// The zero value is the null value.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Map  map[string]Value
	Seq  []Value
}

// StringValue wraps a string scalar.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// NumberValue wraps a numeric scalar.
func NumberValue(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// BoolValue wraps a boolean scalar.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// MapValue wraps a mapping.
func MapValue(m map[string]Value) Value { return Value{Kind: KindMap, Map: m} }

// SeqValue wraps a sequence.
func SeqValue(vs ...Value) Value { return Value{Kind: KindSeq, Seq: vs} }

// FromAny converts a decoded JSON-style value (map[string]any, []any, string,
// float64, bool, nil) into a Value. Integer types are widened to float64.
// Unrecognized Go types are stringified so that no record is ever rejected
// for carrying an exotic payload.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{}
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case int:
		return NumberValue(float64(t))
	case int32:
		return NumberValue(float64(t))
	case int64:
		return NumberValue(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return StringValue(t.String())
		}
		return NumberValue(f)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, vv := range t {
			m[k] = FromAny(vv)
		}
		return MapValue(m)
	case map[string]Value:
		return MapValue(t)
	case []any:
		seq := make([]Value, len(t))
		for i, vv := range t {
			seq[i] = FromAny(vv)
		}
		return Value{Kind: KindSeq, Seq: seq}
	case Value:
		return t
	default:
		return StringValue(fmt.Sprintf("%v", t))
	}
}

// PropertiesFromAny converts a decoded JSON object into a property bag.
// Returns nil for nil input.
func PropertiesFromAny(m map[string]any) map[string]Value {
	if m == nil {
		return nil
	}
	props := make(map[string]Value, len(m))
	for k, v := range m {
		props[k] = FromAny(v)
	}
	return props
}

// Interface converts a Value back to its plain Go representation
// (map[string]any, []any, string, float64, bool, nil). This is the form used
// for JSON and BSON persistence.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindMap:
		m := make(map[string]any, len(v.Map))
		for k, vv := range v.Map {
			m[k] = vv.Interface()
		}
		return m
	case KindSeq:
		seq := make([]any, len(v.Seq))
		for i, vv := range v.Seq {
			seq[i] = vv.Interface()
		}
		return seq
	default:
		return nil
	}
}

// PropertiesInterface converts a property bag to its plain Go representation.
func PropertiesInterface(props map[string]Value) map[string]any {
	if props == nil {
		return nil
	}
	m := make(map[string]any, len(props))
	for k, v := range props {
		m[k] = v.Interface()
	}
	return m
}

// MarshalJSON encodes the value as its plain JSON representation.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes any JSON value into the matching variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// Lookup resolves a path of map keys against the value. Each segment must
// resolve to a mapping except the last. Returns the reached value and true,
// or the zero value and false.
func (v Value) Lookup(path ...string) (Value, bool) {
	cur := v
	for _, seg := range path {
		if cur.Kind != KindMap {
			return Value{}, false
		}
		next, ok := cur.Map[seg]
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// SortedKeys returns the map keys in sorted order, for deterministic walks.
// Returns nil when the value is not a mapping.
func (v Value) SortedKeys() []string {
	if v.Kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.Map))
	for k := range v.Map {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
