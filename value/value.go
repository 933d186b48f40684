// Package value implements Phlow's dynamic document value: a tagged union
// of null, bool, number, string, array and (order-preserving) object, with
// dotted-path lookup. JSON is the canonical serialization; YAML and TOML
// documents are decoded to Go's any-tree and lowered into a Value via
// FromAny before anything else in the engine touches them.
package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant of the tagged union a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// member is one key/value pair of an object, kept in insertion order.
type member struct {
	key   string
	value Value
}

// Value is Phlow's dynamic document value. The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	str     string
	items   []Value
	members []member
	index   map[string]int // key -> position in members; no constructor populates it, so Get scans members
}

// Null is the canonical null Value.
var Null = Value{kind: KindNull}

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Number constructs a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, number: f} }

// String constructs a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array constructs an array Value from the given elements.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value(nil), items...)}
}

// NewObject constructs an empty, order-preserving object Value.
func NewObject() Value {
	return Value{kind: KindObject}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null (including the zero Value).
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns v's boolean value and whether v was actually a bool.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.boolean, true
}

// Number returns v's numeric value and whether v was actually a number.
func (v Value) Number() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.number, true
}

// Str returns v's string value and whether v was actually a string.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Items returns v's array elements, or nil if v is not an array.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.items
}

// Keys returns v's object keys in insertion order, or nil if v is not an object.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, len(v.members))
	for i, m := range v.members {
		keys[i] = m.key
	}
	return keys
}

// Get returns the value stored under key in an object Value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Null, false
	}
	if v.index != nil {
		if i, ok := v.index[key]; ok {
			return v.members[i].value, true
		}
		return Null, false
	}
	for _, m := range v.members {
		if m.key == key {
			return m.value, true
		}
	}
	return Null, false
}

// Set inserts or overwrites key in an object Value, returning the updated
// value; the receiver and other copies of it are left unchanged. Set
// treats a non-object receiver as an empty object.
func (v Value) Set(key string, val Value) Value {
	if v.kind != KindObject {
		v = Value{kind: KindObject}
	}
	members := make([]member, len(v.members), len(v.members)+1)
	copy(members, v.members)
	v.members = members
	for i, m := range v.members {
		if m.key == key {
			v.members[i].value = val
			return v
		}
	}
	v.members = append(v.members, member{key: key, value: val})
	v.index = nil
	return v
}

// Without returns a copy of the object Value with key removed.
func (v Value) Without(key string) Value {
	if v.kind != KindObject {
		return v
	}
	out := Value{kind: KindObject}
	for _, m := range v.members {
		if m.key != key {
			out.members = append(out.members, m)
		}
	}
	return out
}

// Len returns the number of elements (array) or members (object); 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.members)
	default:
		return 0
	}
}

// Path resolves a dotted path such as "a.b.c" against v, descending through
// nested objects. Array indices are not addressable by Path (the document
// model only requires object-path lookup).
func (v Value) Path(path string) (Value, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, segment := range strings.Split(path, ".") {
		next, ok := cur.Get(segment)
		if !ok {
			return Null, false
		}
		cur = next
	}
	return cur, true
}

// Truthy reports whether v should be treated as true in a boolean context:
// booleans by their own value, everything else (including null) is false
// except non-zero numbers and non-empty strings/arrays/objects, matching
// the permissive coercion expression evaluators commonly apply.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.boolean
	case KindNumber:
		return v.number != 0
	case KindString:
		return v.str != ""
	case KindArray:
		return len(v.items) > 0
	case KindObject:
		return len(v.members) > 0
	default:
		return false
	}
}

// FromAny lowers a Go any-tree (as produced by encoding/json, yaml.v3 or
// BurntSushi/toml decoding into `any`) into a Value. Maps become
// order-preserving objects, sorted by key since Go map iteration order is
// undefined. Callers that need to preserve source order should decode
// through yaml.MapSlice/ordered decoders upstream; FromAny is the fallback
// used for already-decoded generic data.
func FromAny(in any) Value {
	switch t := in.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromAny(e)
		}
		return Value{kind: KindArray, items: items}
	case []map[string]any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromAny(e)
		}
		return Value{kind: KindArray, items: items}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := Value{kind: KindObject}
		for _, k := range keys {
			obj.members = append(obj.members, member{key: k, value: FromAny(t[k])})
		}
		return obj
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// ToAny raises v back into a plain Go any-tree suitable for encoding/json,
// yaml.v3 or a text/template binding map.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.boolean
	case KindNumber:
		return v.number
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.items))
		for i, e := range v.items {
			out[i] = e.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.members))
		for _, m := range v.members {
			out[m.key] = m.value.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler, preserving object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.boolean)
	case KindNumber:
		return json.Marshal(v.number)
	case KindString:
		return json.Marshal(v.str)
	case KindArray:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range v.items {
			if i > 0 {
				b.WriteByte(',')
			}
			data, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			b.Write(data)
		}
		b.WriteByte(']')
		return []byte(b.String()), nil
	case KindObject:
		var b strings.Builder
		b.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				b.WriteByte(',')
			}
			key, err := json.Marshal(m.key)
			if err != nil {
				return nil, err
			}
			b.Write(key)
			b.WriteByte(':')
			data, err := m.value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			b.Write(data)
		}
		b.WriteByte('}')
		return []byte(b.String()), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v, _ = fromAnyOrdered(raw), false
	return nil
}

// fromAnyOrdered is like FromAny but used on the output of a json.Decoder
// configured with UseNumber; maps still lose source order (encoding/json
// decodes into map[string]any), so object key order for JSON documents
// falls back to sorted order, same as FromAny.
func fromAnyOrdered(in any) Value {
	return FromAny(in)
}

// String renders v as compact JSON for debugging and log messages.
func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return "<invalid value>"
	}
	return string(data)
}

// Equal reports deep structural equality between v and other.
func Equal(v, other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolean == other.boolean
	case KindNumber:
		return v.number == other.number
	case KindString:
		return v.str == other.str
	case KindArray:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !Equal(v.items[i], other.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.members) != len(other.members) {
			return false
		}
		for _, m := range v.members {
			ov, ok := other.Get(m.key)
			if !ok || !Equal(m.value, ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two Value instances for the relational guard operators
// (less_than, greater_than, ...). Numbers compare numerically, strings
// lexically; mismatched or non-orderable kinds report ok=false so the
// caller can surface an EvalError for a type mismatch.
func Compare(a, b Value) (result int, ok bool) {
	if a.kind == KindNumber && b.kind == KindNumber {
		switch {
		case a.number < b.number:
			return -1, true
		case a.number > b.number:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.kind == KindString && b.kind == KindString {
		return strings.Compare(a.str, b.str), true
	}
	return 0, false
}

// ParseNumber is a helper for evaluator implementations that need to coerce
// a raw literal token (e.g. from YAML/TOML scalar text) into a number.
func ParseNumber(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
