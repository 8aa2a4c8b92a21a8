// Package logging wraps zap into the handful of call shapes the bridge
// core needs. It replaces the teacher's plain log.Printf-behind-a-debug-bool
// pattern (tenzoki-agen/cellorg internal/broker/service.go) with structured,
// leveled logging, matching the zap idiom used pervasively elsewhere in the
// retrieval pack.
package logging

import "go.uber.org/zap"

// Field re-exports zap.Field so callers never need to import zap directly.
type Field = zap.Field

// Convenience constructors mirroring the field names spec.md section 7
// calls out (object, signal, method, property).
func String(key, val string) Field  { return zap.String(key, val) }
func Int(key string, val int) Field { return zap.Int(key, val) }
func Err(err error) Field           { return zap.Error(err) }

// Logger is the reduced logging surface the core depends on. A nil Logger
// is never passed around; use NewNop for tests and contexts with no
// logging configured.
type Logger struct {
	z *zap.Logger
}

// New wraps an existing *zap.Logger.
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// NewProduction builds a Logger using zap's production defaults (JSON,
// info level).
func NewProduction() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Warn logs a recoverable protocol condition (spec.md section 7: malformed
// message, unknown object, register-after-initialization, etc).
func (l *Logger) Warn(msg string, fields ...Field) {
	l.z.Warn(msg, fields...)
}

// Debug logs low-volume diagnostic detail (class-info generation, wire
// message tracing).
func (l *Logger) Debug(msg string, fields ...Field) {
	l.z.Debug(msg, fields...)
}

// With returns a child Logger carrying the given fields on every call.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
