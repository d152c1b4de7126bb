package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Marshal encodes v as compact JSON.
//
// Members are written in their current order and numbers as their literal
// text, so Marshal(Canonicalize(v)) is deterministic and Decode(Marshal(v))
// is lossless.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendValue(&buf, v, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent encodes v as two-space indented JSON for human diffing.
func MarshalIndent(v Value) ([]byte, error) {
	compact, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("indent: %w", err)
	}
	return out.Bytes(), nil
}

func appendValue(buf *bytes.Buffer, v Value, path string) error {
	switch x := v.(type) {
	case Null:
		buf.WriteString("null")
	case Bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		if x == "" || !json.Valid([]byte(x)) {
			return fmt.Errorf("%s: invalid number literal %q", displayPath(path), string(x))
		}
		buf.WriteString(string(x))
	case String:
		if err := appendString(buf, string(x)); err != nil {
			return fmt.Errorf("%s: %w", displayPath(path), err)
		}
	case Array:
		buf.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendValue(buf, elem, indexPath(path, i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendString(buf, m.Key); err != nil {
				return fmt.Errorf("%s: %w", displayPath(path), err)
			}
			buf.WriteByte(':')
			if err := appendValue(buf, m.Value, keyPath(path, m.Key)); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case nil:
		return fmt.Errorf("%s: %w", displayPath(path), errNilValue)
	default:
		return fmt.Errorf("%s: unsupported value type %T", displayPath(path), v)
	}
	return nil
}

var errNilValue = errors.New("nil value")

// appendString writes s as a JSON string without HTML escaping.
func appendString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false) // <, >, & stay literal
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder appends a newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// ToAny converts v to the generic encoding/json representation:
// map[string]any, []any, string, json.Number, bool and nil.
func ToAny(v Value) any {
	switch x := v.(type) {
	case Object:
		m := make(map[string]any, len(x))
		for _, mem := range x {
			m[mem.Key] = ToAny(mem.Value)
		}
		return m
	case Array:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = ToAny(elem)
		}
		return out
	case String:
		return string(x)
	case Number:
		return json.Number(x)
	case Bool:
		return bool(x)
	default:
		return nil
	}
}
