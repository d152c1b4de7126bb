package invoke

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/roach88/lkparity/internal/failure"
	"github.com/roach88/lkparity/internal/lookml"
	"github.com/roach88/lkparity/internal/tree"
)

// Parser is an in-process reference parser: full fixture text in, nested
// document out. name is only used in error messages.
type Parser interface {
	Parse(name string, text []byte) (tree.Value, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(name string, text []byte) (tree.Value, error)

// Parse calls f.
func (f ParserFunc) Parse(name string, text []byte) (tree.Value, error) {
	return f(name, text)
}

// DefaultParser names the built-in LookML reader.
const DefaultParser = "lookml"

var (
	parsersMu sync.RWMutex
	parsers   = map[string]Parser{
		DefaultParser: lookml.Parser{},
	}
)

// RegisterParser makes a reference parser selectable by name.
// Registering an existing name replaces it.
func RegisterParser(name string, p Parser) {
	parsersMu.Lock()
	defer parsersMu.Unlock()
	parsers[name] = p
}

// LookupParser returns the parser registered under name.
func LookupParser(name string) (Parser, error) {
	if name == "" {
		name = DefaultParser
	}
	parsersMu.RLock()
	defer parsersMu.RUnlock()
	p, ok := parsers[name]
	if !ok {
		return nil, failure.Newf(failure.Configuration, "unknown reference parser %q (available: %v)", name, parserNamesLocked())
	}
	return p, nil
}

// ParserNames lists registered parsers in sorted order.
func ParserNames() []string {
	parsersMu.RLock()
	defer parsersMu.RUnlock()
	return parserNamesLocked()
}

func parserNamesLocked() []string {
	names := make([]string, 0, len(parsers))
	for n := range parsers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Reference calls a Parser in-process on the fixture's text.
type Reference struct {
	Parser Parser
}

// NewReference creates a Reference around p.
func NewReference(p Parser) *Reference {
	return &Reference{Parser: p}
}

// Invoke reads path and parses it.
//
// Parser errors are not interpreted: they come back as the cause of a Parse
// failure, reachable through errors.Is and errors.As.
func (r *Reference) Invoke(ctx context.Context, path string) (tree.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Wrap(failure.Parse, "cannot read fixture", err)
	}
	v, err := r.Parser.Parse(filepath.Base(path), text)
	if err != nil {
		return nil, failure.Wrap(failure.Parse, "reference parser rejected fixture", err)
	}
	return v, nil
}
