package tree

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/apd/v3"
)

// Equal reports whether a and b are structurally identical.
//
// Objects must have the same key set with pairwise-equal values (member
// order is ignored), arrays the same length with pairwise-equal elements in
// order. Numbers compare by numeric value, so 1, 1.0 and 1e0 are equal.
// There is no tolerance: a single differing digit is a mismatch.
func Equal(a, b Value) bool {
	type pair struct{ a, b Value }

	stack := []pair{{a, b}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch x := p.a.(type) {
		case Object:
			y, ok := p.b.(Object)
			if !ok || len(x) != len(y) {
				return false
			}
			index := make(map[string]Value, len(y))
			for _, m := range y {
				index[m.Key] = m.Value
			}
			for _, m := range x {
				other, ok := index[m.Key]
				if !ok {
					return false
				}
				stack = append(stack, pair{m.Value, other})
			}
		case Array:
			y, ok := p.b.(Array)
			if !ok || len(x) != len(y) {
				return false
			}
			for i := range x {
				stack = append(stack, pair{x[i], y[i]})
			}
		default:
			if !scalarEqual(p.a, p.b) {
				return false
			}
		}
	}
	return true
}

func scalarEqual(a, b Value) bool {
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && numbersEqual(x, y)
	case nil:
		return b == nil
	default:
		return false
	}
}

// numbersEqual compares two JSON number literals exactly.
func numbersEqual(a, b Number) bool {
	if a == b {
		return true
	}
	x, _, err := apd.NewFromString(string(a))
	if err != nil {
		return false
	}
	y, _, err := apd.NewFromString(string(b))
	if err != nil {
		return false
	}
	return x.Cmp(y) == 0
}

// Difference is a single structural mismatch between two values.
type Difference struct {
	Path  string `json:"path"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

func (d Difference) String() string {
	return fmt.Sprintf("%s: %s != %s", d.Path, d.Left, d.Right)
}

// Diff returns up to limit mismatches between a and b in document order.
// A limit of zero or less returns every mismatch.
func Diff(a, b Value, limit int) []Difference {
	type frame struct {
		a, b Value
		path string
	}

	var diffs []Difference
	full := func() bool { return limit > 0 && len(diffs) >= limit }

	stack := []frame{{a, b, ""}}
	for len(stack) > 0 && !full() {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch x := f.a.(type) {
		case Object:
			y, ok := f.b.(Object)
			if !ok {
				diffs = append(diffs, Difference{displayPath(f.path), summarize(f.a), summarize(f.b)})
				continue
			}
			left := make(map[string]Value, len(x))
			for _, m := range x {
				left[m.Key] = m.Value
			}
			right := make(map[string]Value, len(y))
			for _, m := range y {
				right[m.Key] = m.Value
			}
			keys := make([]string, 0, len(left)+len(right))
			for k := range left {
				keys = append(keys, k)
			}
			for k := range right {
				if _, ok := left[k]; !ok {
					keys = append(keys, k)
				}
			}
			slices.SortFunc(keys, CompareKeys)

			// Push in reverse so the smallest key is visited first.
			for i := len(keys) - 1; i >= 0; i-- {
				k := keys[i]
				lv, lok := left[k]
				rv, rok := right[k]
				switch {
				case !lok:
					stack = append(stack, frame{missing{}, rv, keyPath(f.path, k)})
				case !rok:
					stack = append(stack, frame{lv, missing{}, keyPath(f.path, k)})
				default:
					stack = append(stack, frame{lv, rv, keyPath(f.path, k)})
				}
			}
		case Array:
			y, ok := f.b.(Array)
			if !ok {
				diffs = append(diffs, Difference{displayPath(f.path), summarize(f.a), summarize(f.b)})
				continue
			}
			if len(x) != len(y) {
				diffs = append(diffs, Difference{
					Path:  displayPath(f.path),
					Left:  fmt.Sprintf("%d elements", len(x)),
					Right: fmt.Sprintf("%d elements", len(y)),
				})
			}
			n := min(len(x), len(y))
			for i := n - 1; i >= 0; i-- {
				stack = append(stack, frame{x[i], y[i], indexPath(f.path, i)})
			}
		default:
			if !scalarEqual(f.a, f.b) {
				diffs = append(diffs, Difference{displayPath(f.path), summarize(f.a), summarize(f.b)})
			}
		}
	}
	return diffs
}

// missing marks a key present on only one side of a Diff.
type missing struct{}

func (missing) treeValue() {}

func summarize(v Value) string {
	switch x := v.(type) {
	case missing:
		return "<missing>"
	case Object:
		return fmt.Sprintf("object(%d keys)", len(x))
	case Array:
		return fmt.Sprintf("array(%d)", len(x))
	case String:
		s := string(x)
		if len(s) > 60 {
			s = s[:57] + "..."
		}
		return fmt.Sprintf("%q", s)
	case Number:
		return string(x)
	case Bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return "null"
	}
}
