package tablestore

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
	dbPath := filepath.Join(t.TempDir(), "s.db")
	registry := testRegistry()
	s, err := Open(dbPath, store.WithContainerRegistry(registry), store.WithBatchSize(1))
	assert.NoError(t, err)
	defer s.Close()

	c, _ := registry.Create("test_container")
	c.Set("attribute", "MyAttribute")
	assert.NoError(t, s.Add(c))

	n, err := s.Count("test_container")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)

	byIndex, ok, err := s.GetByIndex("test_container", 0)
	assert.NoError(t, err)
	assert.True(t, ok)
	v, _ := byIndex.Get("attribute")
	assert.Equal(t, "MyAttribute", v)

	id, _ := c.Identifier()
	assert.Equal(t, "test_container.1", id.String())
}

func TestFilterSelect(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "s.db")
	registry := testRegistry()
	s, err := Open(dbPath, store.WithContainerRegistry(registry), store.WithBatchSize(1))
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

	negated, err := filter.Parse(`attribute != "MyAttribute"`)
	assert.NoError(t, err)
	it2, err := s.Iterate("test_container", negated)
	assert.NoError(t, err)
	defer it2.Close()
	c, ok, err = it2.Next()
	assert.NoError(t, err)
	assert.True(t, ok)
	v, _ = c.Get("attribute")
	assert.Equal(t, "other", v)
}

func TestIdentifierOutOfRange(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "s.db")
	registry := testRegistry()
	s, err := Open(dbPath, store.WithContainerRegistry(registry))
	assert.NoError(t, err)
	defer s.Close()

	c, _ := registry.Create("test_container")
	assert.NoError(t, s.Add(c))

	_, ok, err := s.GetByIdentifier("test_container", identifier.New("test_container", 99))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestIterateUnknownTypeErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "s.db")
	s, err := Open(dbPath, store.WithContainerRegistry(testRegistry()))
	assert.NoError(t, err)
	defer s.Close()

	_, err = s.Iterate("test_container", nil)
	assert.Error(t, err, "no rows have been written, so the table does not exist yet")
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "s.db")
	registry := testRegistry()

	s, err := Open(dbPath, store.WithContainerRegistry(registry), store.WithBatchSize(1))
	assert.NoError(t, err)
	for i := 0; i < 3; i++ {
		c, _ := registry.Create("test_container")
		c.Set("attribute", "v")
		assert.NoError(t, s.Add(c))
	}
	assert.NoError(t, s.Close())

	reopened, err := Open(dbPath, store.WithContainerRegistry(registry))
	assert.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count("test_container")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestFormatIncompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "s.db")
	registry := testRegistry()

	s, err := Open(dbPath, store.WithContainerRegistry(registry))
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	// Force the stored format below the read-compatible floor.
	raw, err := Open(dbPath, store.WithContainerRegistry(registry), store.WithReadOnly(true))
	assert.NoError(t, err)
	assert.NoError(t, writeMetaValue(raw.db, metaKeyFormatVersion, "0"))
	assert.NoError(t, raw.Close())

	_, err = Open(dbPath, store.WithContainerRegistry(registry))
	assert.Error(t, err)

	_, err = Open(dbPath, store.WithContainerRegistry(registry), store.WithReadOnly(true))
	assert.Error(t, err)
}

func TestFormatReadOnlyFloor(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "s.db")
	registry := testRegistry()

	s, err := Open(dbPath, store.WithContainerRegistry(registry))
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	// Force the stored format into the read-compatible-only gap: at or
	// above READ_COMPATIBLE_FLOOR but below APPEND_COMPATIBLE_FLOOR.
	raw, err := Open(dbPath, store.WithContainerRegistry(registry), store.WithReadOnly(true))
	assert.NoError(t, err)
	assert.NoError(t, writeMetaValue(raw.db, metaKeyFormatVersion, "1"))
	assert.NoError(t, raw.Close())

	_, err = Open(dbPath, store.WithContainerRegistry(registry))
	assert.Error(t, err, "read-write open must fail below the append-compatible floor")

	ro, err := Open(dbPath, store.WithContainerRegistry(registry), store.WithReadOnly(true))
	assert.NoError(t, err, "read-only open must succeed in the read-compatible-only band")
	assert.NoError(t, ro.Close())
}
