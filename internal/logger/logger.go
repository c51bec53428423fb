// Package logger wraps logrus with a context-carrying, correlation-ID aware
// API so every component logs the same way: logger.Info(ctx, msg, fields...).
package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var base = logrus.StandardLogger()

// Init configures the package-level logrus logger. Call once at startup.
func Init(level string) {
	base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
}

// CloneContext returns a context carrying a *logrus.Entry seeded with any
// correlation_id already present on the request context, so downstream
// components don't need to thread the ID through function signatures.
func CloneContext(ctx context.Context) context.Context {
	entry := entryFromContext(ctx)
	return context.WithValue(ctx, ctxKey{}, entry)
}

// WithCorrelationID attaches a correlation_id field to the logger carried by ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	entry := entryFromContext(ctx).WithField("correlation_id", id)
	return context.WithValue(ctx, ctxKey{}, entry)
}

func entryFromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
			return e
		}
	}
	return logrus.NewEntry(base)
}

// GetLogger returns the *logrus.Entry carried by ctx, for call sites that
// want printf-style Infof/Errorf/Debugf/Warnf directly.
func GetLogger(ctx context.Context) *logrus.Entry { return entryFromContext(ctx) }

func fieldsFrom(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}

// Info logs msg at info level with optional key/value pairs: logger.Info(ctx, "indexed", "chunk_id", id).
func Info(ctx context.Context, msg string, kv ...interface{}) {
	entryFromContext(ctx).WithFields(fieldsFrom(kv)).Info(msg)
}

// Warn logs msg at warning level with optional key/value pairs.
func Warn(ctx context.Context, msg string, kv ...interface{}) {
	entryFromContext(ctx).WithFields(fieldsFrom(kv)).Warn(msg)
}

// Error logs msg at error level with optional key/value pairs.
func Error(ctx context.Context, msg string, kv ...interface{}) {
	entryFromContext(ctx).WithFields(fieldsFrom(kv)).Error(msg)
}

// ErrorWithFields logs msg at error level with a pre-built logrus.Fields map.
func ErrorWithFields(ctx context.Context, msg string, fields logrus.Fields) {
	entryFromContext(ctx).WithFields(fields).Error(msg)
}

// Debugf logs a printf-style message at debug level.
func Debugf(ctx context.Context, format string, args ...interface{}) {
	entryFromContext(ctx).Debugf(format, args...)
}

// Infof logs a printf-style message at info level.
func Infof(ctx context.Context, format string, args ...interface{}) {
	entryFromContext(ctx).Infof(format, args...)
}

// Warnf logs a printf-style message at warning level.
func Warnf(ctx context.Context, format string, args ...interface{}) {
	entryFromContext(ctx).Warnf(format, args...)
}

// Errorf logs a printf-style message at error level.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	entryFromContext(ctx).Errorf(format, args...)
}
