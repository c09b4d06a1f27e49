// Package logger wraps logrus behind a small capability interface so the
// query engine depends on a contract it owns, not on the concrete library.
package logger

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the capability interface consumed throughout the engine.
// Concrete implementations (or test fakes) only need to satisfy this.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	With(fields Fields) Logger
}

// Fields is a structured-logging field set, mirroring logrus.Fields.
type Fields map[string]any

type logrusLogger struct {
	entry *logrus.Entry
}

var base = logrus.New()

func init() {
	base.SetOutput(os.Stdout)
	base.SetFormatter(&logrus.JSONFormatter{})
	base.SetLevel(logrus.InfoLevel)
}

// SetLevel adjusts the package-wide log level (e.g. from config).
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	base.SetLevel(lvl)
}

// New returns a root Logger instance.
func New() Logger {
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

type ctxKey struct{}

// WithContext attaches l to ctx for retrieval via FromContext.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the Logger attached to ctx, or a root Logger if none.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return New()
}

func (l *logrusLogger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) With(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}
