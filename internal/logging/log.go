// Package logging provides a small pluggable logging interface for the
// lock state machine and its surrounding packages. It exists so
// atomixlock and atomixrun depend on the Logger interface rather than on
// a concrete *zap.Logger; they still import zap for its field
// constructors (zap.String, zap.Int64, ...).
package logging

import (
	"go.uber.org/zap"
)

// Logger is the logging interface every package in this module depends
// on instead of a concrete zap.Logger.
type Logger interface {
	// DebugLog logs debug-level messages with optional structured
	// fields.
	DebugLog(msg string, fields ...zap.Field)

	// ErrorLog logs error-level messages with optional structured
	// fields.
	ErrorLog(msg string, fields ...zap.Field)

	// WithMeta returns a new Logger with the given fields attached to
	// every subsequent message.
	WithMeta(fields ...zap.Field) Logger
}

// zapLogger implements Logger on top of a *zap.Logger.
type zapLogger struct {
	logger *zap.Logger
}

// NewZapLogger wraps an existing *zap.Logger.
func NewZapLogger(logger *zap.Logger) Logger {
	return &zapLogger{logger: logger}
}

func (l *zapLogger) DebugLog(msg string, fields ...zap.Field) {
	l.logger.Debug(msg, fields...)
}

func (l *zapLogger) ErrorLog(msg string, fields ...zap.Field) {
	l.logger.Error(msg, fields...)
}

func (l *zapLogger) WithMeta(fields ...zap.Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}

// NopLogger is an empty marker type with no methods; it does not itself
// implement Logger. The discarding Logger comes from NewNopLogger.
type NopLogger struct{}

// NewNopLogger returns a Logger that performs no logging. Convenient for
// tests.
func NewNopLogger() Logger {
	return NewZapLogger(zap.NewNop())
}
