package tree

import "slices"

// Canonicalize returns the canonical form of v.
//
// Every object is rebuilt with its members sorted by key (CompareKeys) and
// every array is rebuilt element by element with its order preserved.
// Scalars are returned unchanged. The input is never mutated, and
// Canonicalize(Canonicalize(v)) equals Canonicalize(v).
//
// Traversal uses an explicit work stack: each frame holds a source value and
// the slot in the output tree where its canonical form belongs. Slots point
// into freshly allocated slices that are never appended to, so the pointers
// stay valid for the whole walk.
func Canonicalize(v Value) Value {
	type frame struct {
		src Value
		dst *Value
	}

	var root Value
	stack := []frame{{src: v, dst: &root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch x := f.src.(type) {
		case Object:
			out := make(Object, len(x))
			copy(out, x)
			slices.SortStableFunc(out, func(a, b Member) int {
				return CompareKeys(a.Key, b.Key)
			})
			*f.dst = out
			for i := range out {
				stack = append(stack, frame{src: out[i].Value, dst: &out[i].Value})
			}
		case Array:
			out := make(Array, len(x))
			*f.dst = out
			for i := range x {
				stack = append(stack, frame{src: x[i], dst: &out[i]})
			}
		default:
			*f.dst = x
		}
	}

	return root
}

// IsCanonical reports whether every object in v already has sorted keys.
func IsCanonical(v Value) bool {
	stack := []Value{v}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch x := cur.(type) {
		case Object:
			for i := range x {
				if i > 0 && CompareKeys(x[i-1].Key, x[i].Key) >= 0 {
					return false
				}
				stack = append(stack, x[i].Value)
			}
		case Array:
			stack = append(stack, x...)
		}
	}
	return true
}
