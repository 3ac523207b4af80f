// Package ident defines the 128-bit document identifier.
package ident

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/strmatch"
)

// ID identifies a document. The zero value is never generated.
type ID [16]byte

// Nil is the zero ID.
var Nil ID

// New returns a random (version 4) ID.
func New() ID {
	return ID(uuid.New())
}

// Parse accepts any textual form understood by uuid.Parse.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("parsing id %q: %w", s, err)
	}
	return ID(u), nil
}

// MustParse is Parse for constants in tests and fixtures.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// FromUint64s builds an ID from its high and low lanes.
func FromUint64s(hi, lo uint64) ID {
	var id ID
	binary.BigEndian.PutUint64(id[:8], hi)
	binary.BigEndian.PutUint64(id[8:], lo)
	return id
}

func (id ID) Hi() uint64 { return binary.BigEndian.Uint64(id[:8]) }
func (id ID) Lo() uint64 { return binary.BigEndian.Uint64(id[8:]) }

func (id ID) IsNil() bool { return id == Nil }

func (id ID) String() string {
	return uuid.UUID(id).String()
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Equal compares two IDs lane by lane.
func Equal(a, b ID) bool {
	return strmatch.Equal128((*[16]byte)(&a), (*[16]byte)(&b))
}

// Contains reports whether ids holds id.
func Contains(ids []ID, id ID) bool {
	for i := range ids {
		if Equal(ids[i], id) {
			return true
		}
	}
	return false
}

// Dedupe drops repeated IDs, keeping the first occurrence of each.
func Dedupe(ids []ID) []ID {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[ID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
