package container

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/log2timeline/acstore/identifier"
)

func testDef() *Def {
	return &Def{
		Name: "test_container",
		Schema: Schema{
			{Name: "attribute", LogicalType: "str"},
			{Name: "tags", LogicalType: "str_list"},
		},
	}
}

func TestGetSetAndFieldValues(t *testing.T) {
	c := New(testDef())
	_, ok := c.Get("attribute")
	assert.False(t, ok)

	c.Set("attribute", "MyAttribute")
	v, ok := c.Get("attribute")
	assert.True(t, ok)
	assert.Equal(t, "MyAttribute", v)

	fvs := c.FieldValues()
	assert.Len(t, fvs, 1)
	assert.Equal(t, "attribute", fvs[0].Name)
}

func TestCloneIsIndependent(t *testing.T) {
	c := New(testDef())
	c.Set("tags", []string{"a", "b"})
	c.SetIdentifier(identifier.New("test_container", 1))

	clone := c.Clone()
	tags, _ := clone.Get("tags")
	tagsSlice := tags.([]string)
	tagsSlice[0] = "mutated"

	original, _ := c.Get("tags")
	assert.Equal(t, "a", original.([]string)[0])

	cloneID, ok := clone.Identifier()
	assert.True(t, ok)
	assert.Equal(t, int64(1), cloneID.SequenceNumber)
}

func TestEqualsIgnoresIdentifier(t *testing.T) {
	a := New(testDef())
	a.Set("attribute", "x")
	b := New(testDef())
	b.Set("attribute", "x")
	b.SetIdentifier(identifier.New("test_container", 5))

	assert.True(t, a.Equals(b))

	b.Set("attribute", "y")
	assert.False(t, a.Equals(b))
}

func TestRegistryRegisterCreateDeregister(t *testing.T) {
	r := NewRegistry()
	def := testDef()

	err := r.Register(def)
	assert.NoError(t, err)

	err = r.Register(def)
	assert.Error(t, err)

	c, err := r.Create("test_container")
	assert.NoError(t, err)
	assert.Equal(t, "test_container", c.TypeName())

	_, err = r.Create("unknown")
	assert.Error(t, err)

	assert.Contains(t, r.Types(), "test_container")

	err = r.Deregister("test_container")
	assert.NoError(t, err)
	_, ok := r.Def("test_container")
	assert.False(t, ok)
}
