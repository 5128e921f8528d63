// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/pagepilot/internal/config"
	"go.uber.org/zap/zapcore"
)

// resetGlobalLogger restores the package to its pre-init state. The logger is
// a global singleton, so tests must reset it before each case.
func resetGlobalLogger() {
	once = sync.Once{}
	globalLogger.Store(nil)
}

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (b *syncBuffer) Sync() error { return nil }

func TestInitializeConsoleFormat(t *testing.T) {
	resetGlobalLogger()
	var buf syncBuffer

	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "pilot-test",
		Colors:      config.ColorConfig{Info: "green"},
	}, &buf)

	GetLogger().Info("console message")

	out := buf.String()
	assert.Contains(t, out, "console message")
	assert.Contains(t, out, "pilot-test.", "logger name should appear with dot suffix")
	assert.Contains(t, out, colorGreen, "info level should be colorized green")
}

func TestInitializeJSONFormat(t *testing.T) {
	resetGlobalLogger()
	var buf syncBuffer

	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "pilot-test",
	}, &buf)

	logger := GetLogger()
	logger.Info("structured message")
	logger.Debug("should be filtered")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug output should be filtered at info level")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "structured message", entry["msg"])
}

func TestInitializeIsIdempotent(t *testing.T) {
	resetGlobalLogger()
	var first, second syncBuffer

	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "a"}, &first)
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "b"}, &second)

	GetLogger().Info("routed once")

	assert.Contains(t, first.String(), "routed once")
	assert.Empty(t, second.String(), "second Initialize must be a no-op")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	resetGlobalLogger()
	var buf syncBuffer

	Initialize(config.LoggerConfig{Level: "definitely-not-a-level", Format: "json"}, &buf)

	logger := GetLogger()
	logger.Debug("filtered")
	logger.Info("kept")

	assert.NotContains(t, buf.String(), "filtered")
	assert.Contains(t, buf.String(), "kept")
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetGlobalLogger()
	logger := GetLogger()
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel), "fallback should be a development logger")
}
