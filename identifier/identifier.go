// Package identifier implements the opaque handle used to address a single
// attribute container within a store: a (type-name, sequence-number) pair.
package identifier

import (
	"strconv"
	"strings"

	"github.com/log2timeline/acstore/errors"
)

// Identifier addresses one container of a given type within a store.
// SequenceNumber is 1-based; the zero value is not a valid identifier.
type Identifier struct {
	TypeName       string
	SequenceNumber int64
}

// New returns an Identifier for typeName at sequenceNumber. It does not
// validate that sequenceNumber is positive; callers that accept identifiers
// from outside the store should use Parse instead.
func New(typeName string, sequenceNumber int64) Identifier {
	return Identifier{TypeName: typeName, SequenceNumber: sequenceNumber}
}

// String renders the canonical "<type-name>.<sequence-number>" form.
func (id Identifier) String() string {
	return id.TypeName + "." + strconv.FormatInt(id.SequenceNumber, 10)
}

// IsZero reports whether id is the absent identifier (empty type name and
// zero sequence number).
func (id Identifier) IsZero() bool {
	return id.TypeName == "" && id.SequenceNumber == 0
}

// Parse decodes the canonical string form produced by String. It rejects any
// value whose shape does not match "<type-name>.<positive-integer>".
func Parse(s string) (Identifier, error) {
	i := strings.LastIndex(s, ".")
	if i < 0 || i == len(s)-1 {
		return Identifier{}, errors.IOErrorf("malformed container identifier %q", s)
	}
	typeName := s[:i]
	if typeName == "" {
		return Identifier{}, errors.IOErrorf("malformed container identifier %q", s)
	}
	seq, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil || seq < 1 {
		return Identifier{}, errors.IOErrorf("malformed container identifier %q", s)
	}
	return Identifier{TypeName: typeName, SequenceNumber: seq}, nil
}
