// Package logging configures the process-wide logrus logger and exposes
// request-scoped entries carrying the request id.
package logging

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var base = logrus.StandardLogger()

// New builds the logger used by the API. Production gets JSON output; everything
// else gets human-readable text. Unknown levels fall back to info.
func New(level, env string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	if env == "production" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return l
}

// SetDefault replaces the logger returned by FromContext when no entry is attached.
func SetDefault(l *logrus.Logger) {
	if l != nil {
		base = l
	}
}

// WithEntry attaches a log entry to ctx.
func WithEntry(ctx context.Context, e *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, e)
}

// FromContext returns the entry stored by the request-id middleware,
// or a bare entry on the default logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && e != nil {
			return e
		}
	}
	return logrus.NewEntry(base)
}
