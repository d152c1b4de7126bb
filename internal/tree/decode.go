package tree

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/valyala/fastjson"
)

// ErrEmptyDocument is returned by Decode for blank input.
var ErrEmptyDocument = errors.New("empty document")

var parserPool fastjson.ParserPool

// Decode parses a single JSON document into a Value.
//
// Object members keep their source order. Duplicate keys within one object,
// trailing data after the document, strings or keys that are not valid UTF-8
// and non-RFC 8259 literals (NaN, hex numbers) are rejected.
//
// fastjson caps nesting at fastjson.MaxDepth (300); parsed LookML documents
// stay far below that.
func Decode(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}
	if err := fastjson.ValidateBytes(data); err != nil {
		return nil, err
	}

	p := parserPool.Get()
	defer parserPool.Put(p)

	fv, err := p.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	// Everything is copied out of the parser before it goes back to the pool.
	return fromFast(fv, "")
}

func fromFast(v *fastjson.Value, path string) (Value, error) {
	switch v.Type() {
	case fastjson.TypeNull:
		return Null{}, nil
	case fastjson.TypeTrue:
		return Bool(true), nil
	case fastjson.TypeFalse:
		return Bool(false), nil
	case fastjson.TypeNumber:
		return Number(v.MarshalTo(nil)), nil
	case fastjson.TypeString:
		b, err := v.StringBytes()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", displayPath(path), err)
		}
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("%s: string is not valid UTF-8", displayPath(path))
		}
		return String(b), nil
	case fastjson.TypeArray:
		items, err := v.Array()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", displayPath(path), err)
		}
		arr := make(Array, len(items))
		for i, item := range items {
			elem, err := fromFast(item, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			arr[i] = elem
		}
		return arr, nil
	case fastjson.TypeObject:
		o, err := v.Object()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", displayPath(path), err)
		}
		obj := make(Object, 0, o.Len())
		seen := make(map[string]struct{}, o.Len())
		var visitErr error
		o.Visit(func(key []byte, child *fastjson.Value) {
			if visitErr != nil {
				return
			}
			if !utf8.Valid(key) {
				visitErr = fmt.Errorf("%s: key is not valid UTF-8", displayPath(path))
				return
			}
			k := string(key)
			if _, dup := seen[k]; dup {
				visitErr = fmt.Errorf("%s: duplicate key %q", displayPath(path), k)
				return
			}
			seen[k] = struct{}{}
			val, err := fromFast(child, keyPath(path, k))
			if err != nil {
				visitErr = err
				return
			}
			obj = append(obj, Member{Key: k, Value: val})
		})
		if visitErr != nil {
			return nil, visitErr
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%s: unsupported JSON type %s", displayPath(path), v.Type())
	}
}
