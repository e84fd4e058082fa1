package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringAndParseRoundTrip(t *testing.T) {
	id := New("test_container", 42)
	assert.Equal(t, "test_container.42", id.String())

	parsed, err := Parse(id.String())
	assert.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestIsZero(t *testing.T) {
	var zero Identifier
	assert.True(t, zero.IsZero())
	assert.False(t, New("t", 1).IsZero())
}

func TestParseRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"noseparator",
		"type.",
		".5",
		"type.0",
		"type.-1",
		"type.abc",
	}
	for _, c := range cases {
		_, err := Parse(c)
		assert.Errorf(t, err, "expected parse error for %q", c)
	}
}

func TestParseAllowsDotsInTypeNamePrefix(t *testing.T) {
	parsed, err := Parse("a.b.3")
	assert.NoError(t, err)
	assert.Equal(t, "a.b", parsed.TypeName)
	assert.Equal(t, int64(3), parsed.SequenceNumber)
}
