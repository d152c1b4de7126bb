// Package tree provides the value model shared by every harness component.
//
// A parsed document is a Value: Null, String, Number, Bool, Array or Object.
// Objects keep their members in source order so that canonicalization is an
// observable step rather than an accident of map iteration.
//
// This package imports nothing internal. All other internal packages import
// tree; tree is the foundational layer.
//
// Key constraints:
//   - Numbers keep their JSON literal text; equality is numeric, not textual
//   - Object keys are unique; Decode rejects duplicates
//   - Canonicalize and Equal use explicit work stacks, so nesting depth is
//     bounded by memory, not by the goroutine stack
package tree
