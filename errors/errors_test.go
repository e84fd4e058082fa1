package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	assert := assert.New(t)

	e := IOErrorf("store %q is closed", "foo")
	assert.Equal(`acstore error (io): store "foo" is closed`, e.Error())
	assert.Nil(e.Unwrap())

	cause := stderrors.New("disk full")
	wrapped := WrapIO(cause, "writing record")
	assert.Equal("acstore error (io): writing record: disk full", wrapped.Error())
	assert.Equal(cause, wrapped.Unwrap())
}

func TestIs(t *testing.T) {
	assert := assert.New(t)

	err := ParseErrorf("bad expression")
	assert.True(Is(err, Parse))
	assert.False(Is(err, IO))

	wrapped := WrapIO(stderrors.New("eof"), "reading")
	assert.True(Is(wrapped, IO))

	assert.False(Is(stderrors.New("plain"), IO))
}

func TestStdlibErrorsAsSeesThrough(t *testing.T) {
	cause := stderrors.New("underlying")
	wrapped := WrapIO(cause, "context")

	var target *Error
	ok := stderrors.As(wrapped, &target)
	assert.True(t, ok)
	assert.Equal(t, IO, target.Kind)
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Internal: "internal",
		IO:       "io",
		Parse:    "parse",
		Key:      "key",
		Value:    "value",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
