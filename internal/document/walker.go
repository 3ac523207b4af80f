package document

import (
	"iter"
	"slices"
	"strings"
)

// Field is one leaf of a document together with the map keys leading to it.
// Elements of a list share the path of the list itself.
type Field struct {
	Path  []string
	Value string
}

func (f Field) Key() string {
	if len(f.Path) == 0 {
		return ""
	}
	return f.Path[len(f.Path)-1]
}

func (f Field) PathString() string {
	return strings.Join(f.Path, ".")
}

type frame struct {
	path []string
	keys []string
	m    Map // nil for list frames
	list List
	next int
}

func (f *frame) done() bool {
	if f.m != nil {
		return f.next >= len(f.keys)
	}
	return f.next >= len(f.list)
}

// Walker flattens a document depth-first without recursion. The zero value
// is empty; use NewWalker.
type Walker struct {
	root  Map
	stack []frame
}

func NewWalker(doc Document) *Walker {
	w := &Walker{root: doc}
	w.Reset()
	return w
}

// Reset rewinds the walker to the first field.
func (w *Walker) Reset() {
	w.stack = w.stack[:0]
	if len(w.root) > 0 {
		w.stack = append(w.stack, mapFrame(nil, w.root))
	}
}

// Next returns the next leaf field, or false once the document is exhausted.
func (w *Walker) Next() (Field, bool) {
	for len(w.stack) > 0 {
		top := &w.stack[len(w.stack)-1]
		if top.done() {
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}

		var (
			path []string
			v    Value
		)
		if top.m != nil {
			key := top.keys[top.next]
			path = extend(top.path, key)
			v = top.m[key]
		} else {
			path = slices.Clone(top.path)
			v = top.list[top.next]
		}
		top.next++

		switch val := v.(type) {
		case Leaf:
			return Field{Path: path, Value: string(val)}, true
		case Map:
			if len(val) > 0 {
				w.stack = append(w.stack, mapFrame(path, val))
			}
		case List:
			if len(val) > 0 {
				w.stack = append(w.stack, frame{path: path, list: val})
			}
		}
	}
	return Field{}, false
}

// Fields iterates a document's leaves in walk order.
func (m Map) Fields() iter.Seq[Field] {
	return func(yield func(Field) bool) {
		w := NewWalker(m)
		for {
			f, ok := w.Next()
			if !ok || !yield(f) {
				return
			}
		}
	}
}

// Leaves collects the text of every leaf in walk order.
func (m Map) Leaves() []string {
	var out []string
	for f := range m.Fields() {
		out = append(out, f.Value)
	}
	return out
}

func mapFrame(path []string, m Map) frame {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return frame{path: path, keys: keys, m: m}
}

func extend(path []string, key string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = key
	return out
}
