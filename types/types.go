// Package types implements the process-wide registry of logical field
// types and their per-encoding serializers (JSON and row-column).
package types

import (
	"sync"

	"github.com/log2timeline/acstore/errors"
)

// Method names one of the two encodings a logical type must support.
type Method int

const (
	// JSON encodes/decodes the logical-type value for the document format.
	JSON Method = iota
	// Column encodes/decodes the logical-type value for a typed table
	// column in the transactional backend.
	Column
)

// ColumnKind describes the SQL storage affinity a Column serializer maps
// onto; the table backend uses it to build CREATE TABLE statements.
type ColumnKind int

const (
	ColumnInteger ColumnKind = iota
	ColumnText
)

// Serializer converts a Go value of an arbitrary logical type to and from
// the wire representation used by one encoding method.
type Serializer interface {
	// Encode converts an in-memory field value to its wire representation.
	Encode(v interface{}) (interface{}, error)
	// Decode converts a wire representation back to an in-memory value.
	Decode(v interface{}) (interface{}, error)
}

// ColumnSerializer is the Column-method variant of Serializer; it also
// reports the SQL column affinity it requires.
type ColumnSerializer interface {
	Serializer
	ColumnKind() ColumnKind
}

// pair bundles the two serializers a logical type must register.
type pair struct {
	json   Serializer
	column ColumnSerializer
}

// Registry is a process-wide (or test-local) table of logical types.
type Registry struct {
	mu    sync.RWMutex
	types map[string]pair
}

// NewRegistry returns an empty Registry. Most callers should use the
// package-level Default registry instead; NewRegistry exists so tests can
// get an isolated table.
func NewRegistry() *Registry {
	return &Registry{types: map[string]pair{}}
}

// Default is the process-wide logical type registry; store.NewOptions uses
// it unless a backend is given another with store.WithTypeRegistry.
var Default = NewRegistry()

func init() {
	registerBuiltins(Default)
}

// Register adds a logical type under name. It fails with a Key error if the
// name is already registered.
func (r *Registry) Register(name string, json Serializer, column ColumnSerializer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[name]; ok {
		return errors.KeyErrorf("logical type %q is already registered", name)
	}
	r.types[name] = pair{json: json, column: column}
	return nil
}

// Deregister removes name from the registry. It fails with a Key error if
// the name is not present.
func (r *Registry) Deregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[name]; !ok {
		return errors.KeyErrorf("logical type %q is not registered", name)
	}
	delete(r.types, name)
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}

// Serializer returns the serializer for name under the given method, or
// (nil, false) if name or the method pairing is not registered.
func (r *Registry) Serializer(name string, method Method) (Serializer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.types[name]
	if !ok {
		return nil, false
	}
	switch method {
	case JSON:
		return p.json, true
	case Column:
		return p.column, true
	default:
		return nil, false
	}
}

// ColumnSerializer returns the Column-method serializer for name (whose
// ColumnKind reports its SQL column affinity), or (nil, false) if
// unregistered.
func (r *Registry) ColumnSerializer(name string) (ColumnSerializer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.types[name]
	if !ok {
		return nil, false
	}
	return p.column, true
}

// Names enumerates all registered logical type names, in unspecified order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}

// Well-known built-in logical type names.
const (
	Bool                         = "bool"
	Int                          = "int"
	Str                          = "str"
	Timestamp                    = "timestamp"
	AttributeContainerIdentifier = "AttributeContainerIdentifier"
	StrList                      = "str_list"
)
