package definitions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/log2timeline/acstore/container"
	"github.com/log2timeline/acstore/types"
)

const validYAML = `
- name: test_container
  attributes:
    - name: attribute
      type: str
    - name: tags
      type: str_list
`

func TestLoadValidDefinitions(t *testing.T) {
	registry := container.NewRegistry()
	err := Load([]byte(validYAML), registry, types.Default)
	assert.NoError(t, err)

	def, ok := registry.Def("test_container")
	assert.True(t, ok)
	assert.Len(t, def.Schema, 2)
}

func TestLoadRejectsUnknownLogicalType(t *testing.T) {
	yaml := `
- name: bad_container
  attributes:
    - name: field
      type: not_a_real_type
`
	registry := container.NewRegistry()
	err := Load([]byte(yaml), registry, types.Default)
	assert.Error(t, err)
	_, ok := registry.Def("bad_container")
	assert.False(t, ok)
}

func TestLoadIsAllOrNothing(t *testing.T) {
	yaml := `
- name: good_container
  attributes:
    - name: attribute
      type: str
- name: bad_container
  attributes:
    - name: field
      type: not_a_real_type
`
	registry := container.NewRegistry()
	err := Load([]byte(yaml), registry, types.Default)
	assert.Error(t, err)

	_, ok := registry.Def("good_container")
	assert.False(t, ok, "partial registration must not occur on failure")
}

func TestLoadRejectsDuplicateAttributeNames(t *testing.T) {
	yaml := `
- name: dup_container
  attributes:
    - name: a
      type: str
    - name: a
      type: str
`
	registry := container.NewRegistry()
	err := Load([]byte(yaml), registry, types.Default)
	assert.Error(t, err)
}

func TestLoadRejectsAlreadyRegisteredName(t *testing.T) {
	registry := container.NewRegistry()
	assert.NoError(t, registry.Register(&container.Def{
		Name:   "test_container",
		Schema: container.Schema{{Name: "attribute", LogicalType: "str"}},
	}))

	err := Load([]byte(validYAML), registry, types.Default)
	assert.Error(t, err)
}
