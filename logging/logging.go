// Package logging provides the structured leveled logger every store
// backend is constructed with. It is a thin wrapper over logrus so callers
// can substitute their own logger without depending on logrus directly.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Logger is the interface every backend logs through.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

// logrusLogger adapts *logrus.Entry to Logger.
type logrusLogger struct {
	entry *logrus.Entry
}

// New returns a Logger backed by a fresh logrus.Logger at Info level,
// writing to stderr in text format, matching this corpus's default.
func New() Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// NewNop returns a Logger that discards everything, used as the default
// when a caller does not supply one.
func NewNop() Logger {
	l := logrus.New()
	l.SetOutput(discard{})
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}
