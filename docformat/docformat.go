// Package docformat implements the __type__-tagged JSON document encoding
// used by the ordered-KV backend: a container serialises to an object
// carrying its type tag plus one entry per declared field.
package docformat

import (
	"encoding/json"

	"github.com/log2timeline/acstore/container"
	"github.com/log2timeline/acstore/errors"
	"github.com/log2timeline/acstore/types"
)

const (
	// TypeKey is the reserved key whose value is always TypeValue.
	TypeKey = "__type__"
	// TypeValue is the constant value of TypeKey.
	TypeValue = "AttributeContainer"
	// ContainerTypeKey holds the container's declared type name.
	ContainerTypeKey = "__container_type__"
)

// Encode serialises c to its JSON document form using typeRegistry to
// encode each declared field value.
func Encode(c *container.Container, typeRegistry *types.Registry) ([]byte, error) {
	doc := map[string]interface{}{
		TypeKey:          TypeValue,
		ContainerTypeKey: c.TypeName(),
	}
	for _, fv := range c.FieldValues() {
		logicalType, ok := c.Def().Schema.LogicalType(fv.Name)
		if !ok {
			continue
		}
		ser, ok := typeRegistry.Serializer(logicalType, types.JSON)
		if !ok {
			return nil, errors.ValueErrorf("unknown logical type %q for field %q", logicalType, fv.Name)
		}
		encoded, err := ser.Encode(fv.Value)
		if err != nil {
			return nil, errors.WrapIO(err, "encoding field %q of type %q", fv.Name, c.TypeName())
		}
		doc[fv.Name] = encoded
	}
	bs, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.WrapIO(err, "marshaling container %q", c.TypeName())
	}
	return bs, nil
}

// Decode parses a JSON document produced by Encode back into a Container.
// It fails if the document's __container_type__ is not registered in
// containerRegistry. Unknown top-level keys and unknown field names (not
// declared by the resolved container type's schema) are discarded.
func Decode(data []byte, containerRegistry *container.Registry, typeRegistry *types.Registry) (*container.Container, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapIO(err, "unmarshaling container document")
	}

	typeName, ok := doc[ContainerTypeKey].(string)
	if !ok || typeName == "" {
		return nil, errors.ValueErrorf("document missing %q", ContainerTypeKey)
	}

	def, ok := containerRegistry.Def(typeName)
	if !ok {
		return nil, errors.KeyErrorf("container type %q is not registered", typeName)
	}

	c := container.New(def)
	for _, field := range def.Schema {
		raw, ok := doc[field.Name]
		if !ok {
			continue
		}
		ser, ok := typeRegistry.Serializer(field.LogicalType, types.JSON)
		if !ok {
			return nil, errors.ValueErrorf("unknown logical type %q for field %q", field.LogicalType, field.Name)
		}
		decoded, err := ser.Decode(raw)
		if err != nil {
			return nil, errors.WrapIO(err, "decoding field %q of type %q", field.Name, typeName)
		}
		c.Set(field.Name, decoded)
	}
	return c, nil
}
