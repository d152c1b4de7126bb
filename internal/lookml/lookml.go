// Package lookml is the in-process reference parser for LookML view files.
//
// It reproduces the output conventions of the established Python reference
// library so the candidate can be checked against it without leaving the Go
// process:
//
//   - Repeatable keys are collected into pluralized arrays:
//     two "dimension: x { }" blocks become "dimensions": [{...}, {...}]
//   - Named blocks gain a "name" member holding the block name
//   - Expression blocks (sql*, html, expression*) keep their text up to ";;"
//     with surrounding whitespace trimmed
//   - Every scalar stays a string: "yes", "10" and "number" are not typed
//   - A non-repeatable key given twice in one block is an error
//
// The grammar and semantics of LookML are not validated beyond what is
// needed to produce that structure.
package lookml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/lkparity/internal/tree"
)

// ErrDuplicateKey is returned when a non-repeatable key appears twice in
// the same block.
var ErrDuplicateKey = errors.New("duplicate key")

// repeatable maps keys that may occur many times in a block to the plural
// key their values are collected under.
var repeatable = map[string]string{
	"access_filter":         "access_filters",
	"access_grant":          "access_grants",
	"action":                "actions",
	"aggregate_table":       "aggregate_tables",
	"allowed_value":         "allowed_values",
	"application":           "applications",
	"assert":                "asserts",
	"column":                "columns",
	"constant":              "constants",
	"datagroup":             "datagroups",
	"derived_column":        "derived_columns",
	"dimension":             "dimensions",
	"dimension_group":       "dimension_groups",
	"explore":               "explores",
	"filter":                "filters",
	"form_param":            "form_params",
	"include":               "includes",
	"join":                  "joins",
	"link":                  "links",
	"local_dependency":      "local_dependencies",
	"map_layer":             "map_layers",
	"measure":               "measures",
	"named_value_format":    "named_value_formats",
	"option":                "options",
	"param":                 "params",
	"parameter":             "parameters",
	"query":                 "queries",
	"remote_dependency":     "remote_dependencies",
	"set":                   "sets",
	"sql_step":              "sql_steps",
	"test":                  "tests",
	"user_attribute_param":  "user_attribute_params",
	"view":                  "views",
	"when":                  "whens",
}

// Plural returns the collection key for a repeatable key.
func Plural(key string) (string, bool) {
	p, ok := repeatable[key]
	return p, ok
}

// Parser parses LookML text into a tree.Value.
// The zero value is ready to use and safe for concurrent use.
type Parser struct{}

// Parse parses a whole LookML document. name is used in error positions.
func (Parser) Parse(name string, text []byte) (tree.Value, error) {
	doc, err := parser.ParseBytes(name, text)
	if err != nil {
		return nil, err
	}
	obj, err := buildItems(doc.Items, name)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Parse is a convenience wrapper around Parser.Parse.
func Parse(name string, text []byte) (tree.Value, error) {
	return Parser{}.Parse(name, text)
}

// builder accumulates the members of one block.
type builder struct {
	obj   tree.Object
	index map[string]int
	where string
}

func newBuilder(where string) *builder {
	return &builder{obj: tree.Object{}, index: map[string]int{}, where: where}
}

func (b *builder) add(key string, v tree.Value) error {
	if plural, ok := repeatable[key]; ok {
		if i, seen := b.index[plural]; seen {
			arr, isArr := b.obj[i].Value.(tree.Array)
			if !isArr {
				return fmt.Errorf("%s: %w %q", b.where, ErrDuplicateKey, plural)
			}
			b.obj[i].Value = append(arr, v)
			return nil
		}
		b.index[plural] = len(b.obj)
		b.obj = append(b.obj, tree.M(plural, tree.Array{v}))
		return nil
	}
	if _, dup := b.index[key]; dup {
		return fmt.Errorf("%s: %w %q", b.where, ErrDuplicateKey, key)
	}
	b.index[key] = len(b.obj)
	b.obj = append(b.obj, tree.M(key, v))
	return nil
}

func buildItems(items []*item, where string) (tree.Object, error) {
	b := newBuilder(where)
	for _, it := range items {
		key, val, err := buildItem(it, where)
		if err != nil {
			return nil, err
		}
		if err := b.add(key, val); err != nil {
			return nil, err
		}
	}
	return b.obj, nil
}

func buildItem(it *item, where string) (string, tree.Value, error) {
	if it.Expr != nil {
		key, text := splitExpr(*it.Expr)
		return key, tree.String(text), nil
	}

	p := it.Pair
	switch {
	case p.List != nil:
		arr, err := buildList(p.List, where+"."+p.Key)
		return p.Key, arr, err
	case p.Block != nil:
		obj, err := buildItems(p.Block.Items, where+"."+p.Key)
		return p.Key, obj, err
	case p.Value != nil && p.Value.Block != nil:
		name := scalarText(p.Value.Scalar)
		obj, err := buildItems(p.Value.Block.Items, where+"."+p.Key+"("+name+")")
		if err != nil {
			return "", nil, err
		}
		if _, has := obj.Get("name"); !has {
			obj = append(obj, tree.M("name", tree.String(name)))
		}
		return p.Key, obj, nil
	case p.Value != nil:
		return p.Key, tree.String(scalarText(p.Value.Scalar)), nil
	default:
		return "", nil, fmt.Errorf("%s: key %q has no value", where, p.Key)
	}
}

func buildList(l *list, where string) (tree.Array, error) {
	arr := make(tree.Array, 0, len(l.Items))
	for _, li := range l.Items {
		switch {
		case li.Block != nil:
			obj, err := buildItems(li.Block.Items, where)
			if err != nil {
				return nil, err
			}
			arr = append(arr, obj)
		case li.Value != nil:
			arr = append(arr, tree.NewObject(tree.M(scalarText(li.Key), tree.String(scalarText(li.Value)))))
		default:
			arr = append(arr, tree.String(scalarText(li.Key)))
		}
	}
	return arr, nil
}

// splitExpr separates "sql: ${TABLE}.id ;;" into its key and trimmed text.
func splitExpr(tok string) (string, string) {
	key, rest, _ := strings.Cut(tok, ":")
	rest = strings.TrimSuffix(rest, ";;")
	return strings.TrimSpace(key), strings.TrimSpace(rest)
}

func scalarText(s *scalar) string {
	if s == nil {
		return ""
	}
	if s.Bare != nil {
		return *s.Bare
	}
	return unquote(*s.Quoted)
}

// unquote strips the surrounding quotes and resolves \" and \\.
// Other escapes are kept verbatim; LookML strings often hold regexes.
func unquote(s string) string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, `"`), `"`)
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
