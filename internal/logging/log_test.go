package logging_test

import (
	"testing"

	"github.com/coderplay/atomix/internal/logging"
	"github.com/stretchr/testify/require"
	"github.com/yyle88/zaplog"
	"go.uber.org/zap"
)

// testLogger implements logging.Logger for testing purposes, adding a
// prefix to messages so caller identity is visible in test logs.
type testLogger struct {
	prefix string
}

func newTestLogger(prefix string) *testLogger {
	return &testLogger{prefix: prefix}
}

func (e *testLogger) DebugLog(msg string, fields ...zap.Field) {
	zaplog.LOGS.Skip(1).Debug(e.prefix+":"+msg, fields...)
}

func (e *testLogger) ErrorLog(msg string, fields ...zap.Field) {
	zaplog.LOGS.Skip(1).Error(e.prefix+":"+msg, fields...)
}

func (e *testLogger) WithMeta(fields ...zap.Field) logging.Logger {
	return newTestLogger(e.prefix + "-with-meta")
}

func TestNewZapLogger(t *testing.T) {
	logger := logging.NewZapLogger(zaplog.LOGS.Skip(1))
	require.NotNil(t, logger)

	logger.DebugLog("test debug message")
	logger.ErrorLog("test error message", zap.String("key", "value"))

	metaLogger := logger.WithMeta(zap.String("session", "test-session"))
	require.NotNil(t, metaLogger)

	metaLogger.DebugLog("debug with meta")
	metaLogger.ErrorLog("error with meta", zap.Int("code", 500))
}

func TestNewNopLogger(t *testing.T) {
	logger := logging.NewNopLogger()
	require.NotNil(t, logger)

	logger.DebugLog("this should be silent")
	logger.ErrorLog("this should also be silent", zap.String("error", "ignored"))

	metaLogger := logger.WithMeta(zap.String("meta", "ignored"))
	require.NotNil(t, metaLogger)

	metaLogger.DebugLog("still silent")
	metaLogger.ErrorLog("still silent too")
}

func TestCustomLoggerImplementation(t *testing.T) {
	customLogger := newTestLogger("custom-prefix")
	require.NotNil(t, customLogger)

	customLogger.DebugLog("custom debug message")
	customLogger.ErrorLog("custom error message", zap.String("source", "test"))

	metaLogger := customLogger.WithMeta(zap.String("context", "testing"))
	require.NotNil(t, metaLogger)

	metaLogger.DebugLog("debug with custom meta")
	metaLogger.ErrorLog("error with custom meta", zap.Int("attempt", 1))
}
