// Package definitions reads externally-authored container type definitions
// from a YAML file and registers them against a container.Registry.
package definitions

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/log2timeline/acstore/container"
	"github.com/log2timeline/acstore/errors"
	"github.com/log2timeline/acstore/types"
)

// rawAttribute mirrors one {name, type} entry under a definition's
// "attributes" key.
type rawAttribute struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// rawDefinition mirrors one YAML document: a container type's name plus its
// attributes.
type rawDefinition struct {
	Name       string         `yaml:"name"`
	Attributes []rawAttribute `yaml:"attributes"`
}

// LoadFile reads path and registers every container type it declares
// against registry, validating each attribute's logical type against
// typeRegistry. Loading is all-or-nothing: if any definition in the file
// fails validation, nothing from the file is registered.
func LoadFile(path string, registry *container.Registry, typeRegistry *types.Registry) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapIO(err, "reading container definitions file %q", path)
	}
	return Load(bs, registry, typeRegistry)
}

// Load parses raw as a YAML sequence of container definitions and registers
// them against registry, in file order. See LoadFile for the all-or-nothing
// contract.
func Load(raw []byte, registry *container.Registry, typeRegistry *types.Registry) error {
	var docs []rawDefinition
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&docs); err != nil && err != io.EOF {
		return errors.ParseErrorf("invalid container definitions file: %v", err)
	}

	defs := make([]*container.Def, 0, len(docs))
	inFile := make(map[string]bool, len(docs))
	for i, doc := range docs {
		def, err := validate(i, doc, registry, typeRegistry)
		if err != nil {
			return err
		}
		if inFile[def.Name] {
			return errors.ParseErrorf("definition %d (%q): container type is declared more than once in the file", i, def.Name)
		}
		inFile[def.Name] = true
		defs = append(defs, def)
	}

	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return errors.ParseErrorf("registering container type %q: %v", def.Name, err)
		}
	}
	return nil
}

func validate(index int, doc rawDefinition, registry *container.Registry, typeRegistry *types.Registry) (*container.Def, error) {
	label := fmt.Sprintf("definition %d", index)
	if doc.Name != "" {
		label = fmt.Sprintf("definition %d (%q)", index, doc.Name)
	}

	if doc.Name == "" {
		return nil, errors.ParseErrorf("%s: missing required \"name\"", label)
	}
	if _, ok := registry.Def(doc.Name); ok {
		return nil, errors.ParseErrorf("%s: container type %q is already registered", label, doc.Name)
	}
	if len(doc.Attributes) == 0 {
		return nil, errors.ParseErrorf("%s: missing required, non-empty \"attributes\"", label)
	}

	seen := make(map[string]bool, len(doc.Attributes))
	schema := make(container.Schema, 0, len(doc.Attributes))
	for _, attr := range doc.Attributes {
		if attr.Name == "" {
			return nil, errors.ParseErrorf("%s: attribute missing required \"name\"", label)
		}
		if seen[attr.Name] {
			return nil, errors.ParseErrorf("%s: duplicate attribute name %q", label, attr.Name)
		}
		seen[attr.Name] = true
		if attr.Type == "" {
			return nil, errors.ParseErrorf("%s: attribute %q missing required \"type\"", label, attr.Name)
		}
		if !typeRegistry.Has(attr.Type) {
			return nil, errors.ParseErrorf("%s: attribute %q references unknown logical type %q", label, attr.Name, attr.Type)
		}
		schema = append(schema, container.Field{Name: attr.Name, LogicalType: attr.Type})
	}

	return &container.Def{Name: doc.Name, Schema: schema}, nil
}
