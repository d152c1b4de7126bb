// Package invoke produces a parsed document for a fixture path.
//
// Two backends satisfy the same Invoker contract: Candidate runs the parser
// under test as a subprocess and decodes its stdout, Reference calls an
// in-process Parser on the fixture text. The harness never needs to know
// which one it holds.
package invoke

import (
	"context"

	"github.com/roach88/lkparity/internal/tree"
)

// Invoker turns a fixture path into a parsed document.
type Invoker interface {
	Invoke(ctx context.Context, path string) (tree.Value, error)
}

// Func adapts a function to the Invoker interface.
type Func func(ctx context.Context, path string) (tree.Value, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, path string) (tree.Value, error) {
	return f(ctx, path)
}
