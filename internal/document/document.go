// Package document models the nested field trees that are indexed and stored.
//
// A document is a map of named fields. Each field is a Leaf holding text, a
// List of values, or a nested Map. Walker flattens a document into its leaf
// fields in a fixed order: map keys ascending at every level, list elements
// in stored order.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

type Kind uint8

const (
	KindLeaf Kind = iota + 1
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is one of Leaf, List or Map.
type Value interface {
	Kind() Kind
	sealed()
}

type (
	Leaf string
	List []Value
	Map  map[string]Value
)

// Document is the root of a field tree.
type Document = Map

func (Leaf) Kind() Kind { return KindLeaf }
func (List) Kind() Kind { return KindList }
func (Map) Kind() Kind  { return KindMap }

func (Leaf) sealed() {}
func (List) sealed() {}
func (Map) sealed()  {}

func (m *Map) UnmarshalJSON(data []byte) error {
	v, err := decode(data)
	if err != nil {
		return err
	}
	mv, ok := v.(Map)
	if !ok {
		return fmt.Errorf("%w: expected object, got %s", apperrors.ErrInvalidDocument, v.Kind())
	}
	*m = mv
	return nil
}

func (l *List) UnmarshalJSON(data []byte) error {
	v, err := decode(data)
	if err != nil {
		return err
	}
	lv, ok := v.(List)
	if !ok {
		return fmt.Errorf("%w: expected array, got %s", apperrors.ErrInvalidDocument, v.Kind())
	}
	*l = lv
	return nil
}

// Parse decodes a JSON object into a Document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		if !errors.Is(err, apperrors.ErrInvalidDocument) {
			err = fmt.Errorf("%w: %v", apperrors.ErrInvalidDocument, err)
		}
		return nil, err
	}
	return doc, nil
}

func decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDocument, err)
	}
	return convert(raw, "$")
}

// convert maps decoded JSON onto the field tree. Numbers and booleans keep
// their literal text as leaves; null has no representation.
func convert(raw any, at string) (Value, error) {
	switch v := raw.(type) {
	case string:
		return Leaf(v), nil
	case json.Number:
		return Leaf(v.String()), nil
	case bool:
		if v {
			return Leaf("true"), nil
		}
		return Leaf("false"), nil
	case []any:
		out := make(List, 0, len(v))
		for i, elem := range v {
			cv, err := convert(elem, fmt.Sprintf("%s[%d]", at, i))
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	case map[string]any:
		out := make(Map, len(v))
		for key, elem := range v {
			cv, err := convert(elem, at+"."+key)
			if err != nil {
				return nil, err
			}
			out[key] = cv
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("%w: null value at %s", apperrors.ErrInvalidDocument, at)
	default:
		return nil, fmt.Errorf("%w: unsupported value %T at %s", apperrors.ErrInvalidDocument, raw, at)
	}
}
