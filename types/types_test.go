package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/log2timeline/acstore/identifier"
)

func TestBuiltinsRegisteredOnDefault(t *testing.T) {
	for _, name := range []string{Bool, Int, Str, Timestamp, AttributeContainerIdentifier, StrList} {
		assert.True(t, Default.Has(name), "expected %q to be registered", name)
	}
}

func TestIntRoundTrip(t *testing.T) {
	ser, ok := Default.Serializer(Int, JSON)
	assert.True(t, ok)
	encoded, err := ser.Encode(int64(7))
	assert.NoError(t, err)
	decoded, err := ser.Decode(encoded)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), decoded)
}

func TestBoolColumnEncodesAsInteger(t *testing.T) {
	ser, ok := Default.ColumnSerializer(Bool)
	assert.True(t, ok)
	assert.Equal(t, ColumnInteger, ser.ColumnKind())

	encoded, err := ser.Encode(true)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), encoded)

	decoded, err := ser.Decode(int64(0))
	assert.NoError(t, err)
	assert.Equal(t, false, decoded)
}

func TestStrListRoundTripBothMethods(t *testing.T) {
	jsonSer, _ := Default.Serializer(StrList, JSON)
	colSer, _ := Default.ColumnSerializer(StrList)

	in := []string{"a", "b", "c"}

	encJSON, err := jsonSer.Encode(in)
	assert.NoError(t, err)
	decJSON, err := jsonSer.Decode(encJSON)
	assert.NoError(t, err)
	assert.Equal(t, in, decJSON)

	encCol, err := colSer.Encode(in)
	assert.NoError(t, err)
	assert.IsType(t, "", encCol)
	decCol, err := colSer.Decode(encCol)
	assert.NoError(t, err)
	assert.Equal(t, in, decCol)
}

func TestIdentifierSerializerRoundTrip(t *testing.T) {
	ser, _ := Default.Serializer(AttributeContainerIdentifier, JSON)
	id := identifier.New("foo", 3)

	encoded, err := ser.Encode(id)
	assert.NoError(t, err)
	assert.Equal(t, "foo.3", encoded)

	decoded, err := ser.Decode(encoded)
	assert.NoError(t, err)
	assert.Equal(t, id, decoded)
}

func TestRegisterAndDeregister(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Has("custom"))

	err := r.Register("custom", strJSON{}, strColumn{})
	assert.NoError(t, err)
	assert.True(t, r.Has("custom"))

	err = r.Register("custom", strJSON{}, strColumn{})
	assert.Error(t, err)

	err = r.Deregister("custom")
	assert.NoError(t, err)
	assert.False(t, r.Has("custom"))

	err = r.Deregister("custom")
	assert.Error(t, err)
}
