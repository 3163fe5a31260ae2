// Package settings stores the editable site settings as an ordered tree and
// renders it into form fields for the back-office editor.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "boolean"
	KindArray  Kind = "array"
	KindObject Kind = "object"
)

var (
	ErrInvalidPath = errors.New("invalid path")
	ErrNotObject   = errors.New("path crosses a non-object value")
	ErrNotFound    = errors.New("path not found")
)

// Value is one node of the tree. Exactly the field matching Kind is
// meaningful. Arrays are edited as a whole, so they are leaves.
type Value struct {
	Kind   Kind
	Str    string
	Num    float64
	Bool   bool
	Items  []Value
	Fields []Field
}

// Field keeps object keys in their insertion order.
type Field struct {
	Key   string
	Value Value
}

func String(s string) Value      { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value     { return Value{Kind: KindNumber, Num: n} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Array(items ...Value) Value { return Value{Kind: KindArray, Items: items} }

func Object(fields ...Field) Value {
	return Value{Kind: KindObject, Fields: fields}
}

func F(key string, v Value) Field {
	return Field{Key: key, Value: v}
}

// Lookup returns the direct child named key.
func (v Value) Lookup(key string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Get walks a dotted path such as "contact.email".
func (v Value) Get(path string) (Value, error) {
	keys, err := splitPath(path)
	if err != nil {
		return Value{}, err
	}
	cur := v
	for _, k := range keys {
		if cur.Kind != KindObject {
			return Value{}, ErrNotObject
		}
		next, ok := cur.Lookup(k)
		if !ok {
			return Value{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		cur = next
	}
	return cur, nil
}

// Set returns a copy of v with the node at path replaced. Missing
// intermediate objects are created and new keys are appended.
func (v Value) Set(path string, nv Value) (Value, error) {
	keys, err := splitPath(path)
	if err != nil {
		return Value{}, err
	}
	return set(v, keys, nv)
}

func set(v Value, keys []string, nv Value) (Value, error) {
	if len(keys) == 0 {
		return nv, nil
	}
	if v.Kind != KindObject {
		return Value{}, ErrNotObject
	}
	fields := make([]Field, len(v.Fields))
	copy(fields, v.Fields)
	for i, f := range fields {
		if f.Key != keys[0] {
			continue
		}
		child, err := set(f.Value, keys[1:], nv)
		if err != nil {
			return Value{}, err
		}
		fields[i].Value = child
		return Object(fields...), nil
	}
	child, err := set(Object(), keys[1:], nv)
	if err != nil {
		return Value{}, err
	}
	return Object(append(fields, F(keys[0], child))...), nil
}

func splitPath(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrInvalidPath
	}
	keys := strings.Split(path, ".")
	for _, k := range keys {
		if k == "" {
			return nil, ErrInvalidPath
		}
	}
	return keys, nil
}

// FromJSON parses a JSON document while keeping object key order. A null is
// read as an empty string.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			fields := make([]Field, 0)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key := keyTok.(string)
				child, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				fields = append(fields, F(key, child))
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Object(fields...), nil
		case '[':
			items := make([]Value, 0)
			for dec.More() {
				child, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, child)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Array(items...), nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return String(t), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(n), nil
	case bool:
		return Bool(t), nil
	case nil:
		return String(""), nil
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := FromJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindString:
		return writeScalar(buf, v.Str)
	case KindNumber:
		buf.WriteString(strconv.FormatFloat(v.Num, 'f', -1, 64))
		return nil
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.Bool))
		return nil
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := f.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	}
	return fmt.Errorf("unknown kind %q", v.Kind)
}

func writeScalar(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// Plain converts the node to the generic Go representation used in form
// descriptors.
func (v Value) Plain() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindArray:
		out := make([]interface{}, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Plain()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.Fields))
		for _, f := range v.Fields {
			out[f.Key] = f.Value.Plain()
		}
		return out
	}
	return nil
}

// FormField describes one editor input. Objects become groups holding their
// children in key order.
type FormField struct {
	Path   string      `json:"path"`
	Label  string      `json:"label"`
	Kind   Kind        `json:"kind"`
	Value  interface{} `json:"value,omitempty"`
	Fields []FormField `json:"fields,omitempty"`
}

// Render walks an object and produces the editor's field list.
func Render(v Value) []FormField {
	return renderFields(v, "")
}

func renderFields(v Value, prefix string) []FormField {
	out := make([]FormField, 0, len(v.Fields))
	for _, f := range v.Fields {
		path := f.Key
		if prefix != "" {
			path = prefix + "." + f.Key
		}
		field := FormField{Path: path, Label: Label(f.Key), Kind: f.Value.Kind}
		if f.Value.Kind == KindObject {
			field.Fields = renderFields(f.Value, path)
		} else {
			field.Value = f.Value.Plain()
		}
		out = append(out, field)
	}
	return out
}

// Label turns a camelCase or snake_case key into a readable label:
// "siteName" and "site_name" both become "Site name".
func Label(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	if len(words) == 0 {
		return key
	}
	label := strings.Join(words, " ")
	first := []rune(label)
	first[0] = unicode.ToUpper(first[0])
	return string(first)
}
