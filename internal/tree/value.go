package tree

import "unicode/utf16"

// Value is a sealed interface over the JSON value domain.
// Only Null, String, Number, Bool, Array and Object implement it.
type Value interface {
	treeValue() // Sealed - only these types implement it
}

// Null is the single JSON null value.
type Null struct{}

func (Null) treeValue() {}

// String is a JSON string.
type String string

func (String) treeValue() {}

// Number is a JSON number kept as its literal text.
// The literal is preserved so snapshots are byte-stable and lossless.
type Number string

func (Number) treeValue() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) treeValue() {}

// Array is an ordered sequence. Order is significant.
type Array []Value

func (Array) treeValue() {}

// Member is a single key/value entry of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object is a mapping with unique keys, kept in insertion order.
// Use Canonicalize to obtain the sorted form.
type Object []Member

func (Object) treeValue() {}

// M is a shorthand for Member for ergonomic construction.
// Example: NewObject(M("name", String("users")), M("views", NewArray()))
func M(key string, value Value) Member {
	return Member{Key: key, Value: value}
}

// NewObject creates an Object from members in the given order.
func NewObject(members ...Member) Object {
	obj := make(Object, len(members))
	copy(obj, members)
	return obj
}

// NewArray creates an Array from values.
func NewArray(vals ...Value) Array {
	arr := make(Array, len(vals))
	copy(arr, vals)
	return arr
}

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Keys returns the member keys in their current order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, m := range o {
		keys[i] = m.Key
	}
	return keys
}

// CompareKeys orders member keys by UTF-16 code units as RFC 8785 requires.
// For keys inside the Basic Multilingual Plane this is plain lexicographic
// order; it only differs from Go's UTF-8 byte order for supplementary
// characters.
func CompareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
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

// Kind names the JSON type of a value.
type Kind string

const (
	KindNull   Kind = "null"
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "boolean"
	KindArray  Kind = "array"
	KindObject Kind = "object"
)

// KindOf returns the JSON type of v. A nil Value reports KindNull.
func KindOf(v Value) Kind {
	switch v.(type) {
	case String:
		return KindString
	case Number:
		return KindNumber
	case Bool:
		return KindBool
	case Array:
		return KindArray
	case Object:
		return KindObject
	default:
		return KindNull
	}
}
