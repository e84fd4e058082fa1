package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNopDoesNotPanic(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Infof("hello %s", "world")
		l.Debugf("debug")
		l.Warnf("warn")
		l.Errorf("error")
	})
}

func TestWithFieldReturnsIndependentLogger(t *testing.T) {
	l := NewNop()
	child := l.WithField("batch_id", "abc")
	assert.NotPanics(t, func() {
		child.Infof("flushing")
	})
}
