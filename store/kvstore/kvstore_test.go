package kvstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/log2timeline/acstore/container"
	"github.com/log2timeline/acstore/filter"
	"github.com/log2timeline/acstore/identifier"
	"github.com/log2timeline/acstore/store"
)

func testRegistry() *container.Registry {
	r := container.NewRegistry()
	_ = r.Register(&container.Def{
		Name: "test_container",
		Schema: container.Schema{
			{Name: "attribute", LogicalType: "str"},
		},
	})
	return r
}

func TestAddAndGetByIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kv")
	registry := testRegistry()
	s, err := Open(dir, store.WithContainerRegistry(registry))
	assert.NoError(t, err)
	defer s.Close()

	c, _ := registry.Create("test_container")
	c.Set("attribute", "MyAttribute")
	assert.NoError(t, s.Add(c))

	id, ok := c.Identifier()
	assert.True(t, ok)
	assert.Equal(t, "test_container.1", id.String())

	byIndex, ok, err := s.GetByIndex("test_container", 0)
	assert.NoError(t, err)
	assert.True(t, ok)
	v, _ := byIndex.Get("attribute")
	assert.Equal(t, "MyAttribute", v)
}

func TestPersistenceAndSequenceRecovery(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kv")
	registry := testRegistry()

	s, err := Open(dir, store.WithContainerRegistry(registry))
	assert.NoError(t, err)
	for i := 0; i < 3; i++ {
		c, _ := registry.Create("test_container")
		c.Set("attribute", "v")
		assert.NoError(t, s.Add(c))
	}
	assert.NoError(t, s.Close())

	reopened, err := Open(dir, store.WithContainerRegistry(registry))
	assert.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count("test_container")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)

	last, ok, err := reopened.GetByIndex("test_container", 2)
	assert.NoError(t, err)
	assert.True(t, ok)
	id, _ := last.Identifier()
	assert.Equal(t, "test_container.3", id.String())
}

func TestGetByIdentifierOutOfRange(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kv")
	registry := testRegistry()
	s, err := Open(dir, store.WithContainerRegistry(registry))
	assert.NoError(t, err)
	defer s.Close()

	c, _ := registry.Create("test_container")
	assert.NoError(t, s.Add(c))

	_, ok, err := s.GetByIdentifier("test_container", identifier.New("test_container", 99))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestIterateWithFilter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kv")
	registry := testRegistry()
	s, err := Open(dir, store.WithContainerRegistry(registry))
	assert.NoError(t, err)
	defer s.Close()

	c1, _ := registry.Create("test_container")
	c1.Set("attribute", "MyAttribute")
	assert.NoError(t, s.Add(c1))

	c2, _ := registry.Create("test_container")
	c2.Set("attribute", "other")
	assert.NoError(t, s.Add(c2))

	pred, err := filter.Parse(`attribute == "MyAttribute"`)
	assert.NoError(t, err)

	it, err := s.Iterate("test_container", pred)
	assert.NoError(t, err)
	defer it.Close()
	c, ok, err := it.Next()
	assert.NoError(t, err)
	assert.True(t, ok)
	v, _ := c.Get("attribute")
	assert.Equal(t, "MyAttribute", v)

	_, ok, err = it.Next()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestClosedStoreErrors(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kv")
	s, err := Open(dir, store.WithContainerRegistry(testRegistry()))
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	_, err = s.Count("test_container")
	assert.Error(t, err)

	err = s.Close()
	assert.Error(t, err)
}
