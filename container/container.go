// Package container implements the attribute container base type and the
// process-wide registry mapping a container type name to its schema.
package container

import (
	"sync"

	"github.com/log2timeline/acstore/errors"
	"github.com/log2timeline/acstore/identifier"
)

// Field declares one schema field: its name and the logical type (as
// registered in package types) that governs how its values are encoded.
type Field struct {
	Name       string
	LogicalType string
}

// Schema is the ordered set of fields declared for a container type. Order
// matters: it is the order FieldValues and row-column encoding use.
type Schema []Field

// Names returns the declared field names, in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// LogicalType returns the logical type declared for name, or ("", false) if
// name is not a field of this schema.
func (s Schema) LogicalType(name string) (string, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.LogicalType, true
		}
	}
	return "", false
}

// Def is a container type definition: its name and schema. A Def is
// registered once with a Registry; every Container of that type shares it.
type Def struct {
	Name   string
	Schema Schema
}

// Container is a mutable attribute container instance: a type name, an
// identifier (absent until the store assigns one), and one value per
// declared schema field.
type Container struct {
	def    *Def
	id     *identifier.Identifier
	values map[string]interface{}
}

// New returns a fresh container of the given definition with every field
// initialised to the absent value (not present in values).
func New(def *Def) *Container {
	return &Container{def: def, values: map[string]interface{}{}}
}

// TypeName returns the container's declared type name.
func (c *Container) TypeName() string {
	return c.def.Name
}

// Def returns the container's definition.
func (c *Container) Def() *Def {
	return c.def
}

// Identifier returns the container's identifier and true, or
// (zero-value, false) if the container has not been inserted yet.
func (c *Container) Identifier() (identifier.Identifier, bool) {
	if c.id == nil {
		return identifier.Identifier{}, false
	}
	return *c.id, true
}

// SetIdentifier assigns id to the container. Callers should only call this
// once, at insertion time; store backends call it, not ordinary users.
func (c *Container) SetIdentifier(id identifier.Identifier) {
	cp := id
	c.id = &cp
}

// FieldNames returns the declared schema field names, in schema order.
func (c *Container) FieldNames() []string {
	return c.def.Schema.Names()
}

// Get returns the value stored under name and true, or (nil, false) if no
// value has been set under name. It does not consult the schema.
func (c *Container) Get(name string) (interface{}, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Set assigns value to field name. It validates neither the name against
// the schema nor the value against the logical type. The persistent
// backends encode each declared field through its logical type's serializer
// when writing, which rejects a value of the wrong Go type; the in-memory
// backend stores values as given.
func (c *Container) Set(name string, value interface{}) {
	c.values[name] = value
}

// FieldValue pairs a field name with its value, used by FieldValues.
type FieldValue struct {
	Name  string
	Value interface{}
}

// FieldValues returns (name, value) pairs for every declared field that has
// been set, in schema order, skipping absent-valued fields.
func (c *Container) FieldValues() []FieldValue {
	out := make([]FieldValue, 0, len(c.def.Schema))
	for _, f := range c.def.Schema {
		if v, ok := c.values[f.Name]; ok {
			out = append(out, FieldValue{Name: f.Name, Value: v})
		}
	}
	return out
}

// Clone returns an independent deep copy of c. Slice-valued fields (e.g.
// str_list) are copied element-wise so mutating the clone's slice does not
// alias the original's backing array.
func (c *Container) Clone() *Container {
	clone := &Container{def: c.def, values: make(map[string]interface{}, len(c.values))}
	if c.id != nil {
		cp := *c.id
		clone.id = &cp
	}
	for k, v := range c.values {
		clone.values[k] = cloneValue(v)
	}
	return clone
}

func cloneValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case []string:
		cp := make([]string, len(vv))
		copy(cp, vv)
		return cp
	default:
		return v
	}
}

// Equals reports whether c and other have the same type name and the same
// field values. The identifier is not part of equality.
func (c *Container) Equals(other *Container) bool {
	if other == nil {
		return false
	}
	if c.TypeName() != other.TypeName() {
		return false
	}
	a, b := c.values, other.values
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !valuesEqual(av, bv) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	as, aok := a.([]string)
	bs, bok := b.([]string)
	if aok || bok {
		if !aok || !bok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if as[i] != bs[i] {
				return false
			}
		}
		return true
	}
	return a == b
}

// Registry is a process-wide (or test-local) table mapping container type
// names to their Def.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Def
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{types: map[string]*Def{}}
}

// Default is the process-wide container type registry.
var Default = NewRegistry()

// Register adds def under def.Name. It fails with a Key error if the name
// is already registered.
func (r *Registry) Register(def *Def) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[def.Name]; ok {
		return errors.KeyErrorf("container type %q is already registered", def.Name)
	}
	r.types[def.Name] = def
	return nil
}

// Deregister removes name. It fails with a Key error if name is absent.
func (r *Registry) Deregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[name]; !ok {
		return errors.KeyErrorf("container type %q is not registered", name)
	}
	delete(r.types, name)
	return nil
}

// Create returns a fresh container of the named type, or a Key error if the
// type is not registered.
func (r *Registry) Create(name string) (*Container, error) {
	r.mu.RLock()
	def, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.KeyErrorf("container type %q is not registered", name)
	}
	return New(def), nil
}

// Schema returns the declared schema for name, or a Key error if name is not
// registered.
func (r *Registry) Schema(name string) (Schema, error) {
	r.mu.RLock()
	def, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.KeyErrorf("container type %q is not registered", name)
	}
	return def.Schema, nil
}

// Def returns the registered Def for name, or (nil, false).
func (r *Registry) Def(name string) (*Def, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[name]
	return def, ok
}

// Types enumerates all registered type names, in unspecified order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}
