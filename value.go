package jsonstream

import (
	"strconv"
	"strings"
)

// ValueKind is the tag discriminating the closed set of materialised JSON
// value shapes.
type ValueKind int8

const (
	NullVal ValueKind = iota
	BoolVal
	NumberVal
	StringVal
	ArrayVal
	ObjectVal
	numValueKinds
)

var valueKindStrings = [numValueKinds]string{
	"null", "boolean", "number", "string", "array", "object",
}

func (k ValueKind) String() string {
	if k < 0 || k >= numValueKinds {
		return "<unknown>"
	}
	return valueKindStrings[k]
}

// Value is a fully materialised JSON value: null, boolean, 64-bit float,
// string, ordered array, or ordered object. It is the output type of the
// Deserializer and the leaf input type accepted by the Serializer.
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  *Object
}

// Null is the JSON null value.
var Null = Value{kind: NullVal}

// Bool wraps a boolean as a Value.
func Bool(b bool) Value { return Value{kind: BoolVal, b: b} }

// Number wraps a float64 as a Value.
func Number(n float64) Value { return Value{kind: NumberVal, n: n} }

// String wraps a string as a Value.
func String(s string) Value { return Value{kind: StringVal, s: s} }

// Array wraps an ordered slice of values as a Value.
func Array(items ...Value) Value { return Value{kind: ArrayVal, arr: items} }

// Obj wraps an Object as a Value.
func Obj(o *Object) Value { return Value{kind: ObjectVal, obj: o} }

// Kind reports which JSON shape v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is the JSON null value (including the zero Value).
func (v Value) IsNull() bool { return v.kind == NullVal }

// AsBool returns v's boolean payload. ok is false if v is not a boolean.
func (v Value) AsBool() (val bool, ok bool) { return v.b, v.kind == BoolVal }

// AsNumber returns v's numeric payload. ok is false if v is not a number.
func (v Value) AsNumber() (val float64, ok bool) { return v.n, v.kind == NumberVal }

// AsString returns v's string payload. ok is false if v is not a string.
func (v Value) AsString() (val string, ok bool) { return v.s, v.kind == StringVal }

// AsArray returns v's element slice. ok is false if v is not an array.
func (v Value) AsArray() (val []Value, ok bool) { return v.arr, v.kind == ArrayVal }

// AsObject returns v's Object. ok is false if v is not an object.
func (v Value) AsObject() (val *Object, ok bool) { return v.obj, v.kind == ObjectVal }

// Index is a fluent accessor for array elements: out-of-range or
// non-array receivers yield Null rather than panicking, so a chain of
// drill-down accessors can be written without a nil check after each step.
func (v Value) Index(i int) Value {
	if v.kind != ArrayVal || i < 0 || i >= len(v.arr) {
		return Null
	}
	return v.arr[i]
}

// Key is a fluent accessor for object members: missing keys or
// non-object receivers yield Null rather than panicking.
func (v Value) Key(k string) Value {
	if v.kind != ObjectVal || v.obj == nil {
		return Null
	}
	val, ok := v.obj.Get(k)
	if !ok {
		return Null
	}
	return val
}

// String renders a debug form of v. It is NOT valid JSON text; use
// Serialize + Stringify for that.
func (v Value) String() string {
	switch v.kind {
	case NullVal:
		return "null"
	case BoolVal:
		if v.b {
			return "true"
		}
		return "false"
	case NumberVal:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case StringVal:
		return strconv.Quote(v.s)
	case ArrayVal:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ObjectVal:
		if v.obj == nil {
			return "{}"
		}
		parts := make([]string, 0, v.obj.Len())
		for _, k := range v.obj.Keys() {
			val, _ := v.obj.Get(k)
			parts = append(parts, strconv.Quote(k)+": "+val.String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "<unknown>"
}

// Equal does a structural deep comparison, used by the test suite to check
// Deserialize(Parse(Stringify(Serialize(v)))) == v.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case NullVal:
		return true
	case BoolVal:
		return v.b == other.b
	case NumberVal:
		return v.n == other.n
	case StringVal:
		return v.s == other.s
	case ArrayVal:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case ObjectVal:
		if v.obj == nil || other.obj == nil {
			return v.obj == other.obj
		}
		if v.obj.Len() != other.obj.Len() {
			return false
		}
		for _, k := range v.obj.Keys() {
			a, _ := v.obj.Get(k)
			b, ok := other.obj.Get(k)
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Object is an ordered string-keyed map preserving insertion order; a
// second Set of the same key overwrites the value in place but keeps the
// key's original position, and duplicate keys collapse to the last
// writer.
type Object struct {
	keys []string
	idx  map[string]int
	vals []Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{idx: map[string]int{}}
}

// Set inserts or overwrites key's value, preserving first-seen order.
func (o *Object) Set(key string, v Value) {
	if i, ok := o.idx[key]; ok {
		o.vals[i] = v
		return
	}
	o.idx[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.vals = append(o.vals, v)
}

// Get looks up key's value.
func (o *Object) Get(key string) (Value, bool) {
	i, ok := o.idx[key]
	if !ok {
		return Value{}, false
	}
	return o.vals[i], true
}

// Keys returns the object's keys in insertion order. The slice is owned by
// the caller; mutating it does not affect o.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of members.
func (o *Object) Len() int { return len(o.keys) }

// Range calls fn for each member in insertion order, stopping early if fn
// returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	for i, k := range o.keys {
		if !fn(k, o.vals[i]) {
			return
		}
	}
}
