// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/mossriver/tilenav/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ zapcore.WriteSyncer = (*syncBuffer)(nil)

func TestInitializeWritesStructuredLogs(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "json",
		ServiceName: "tilenav-test",
	}, buf)

	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Info("navigation started")

	out := buf.String()
	assert.Contains(t, out, `"navigation started"`)
	assert.Contains(t, out, "tilenav-test")
	assert.Contains(t, out, `"INFO"`)
}

func TestInitializeOnlyOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &syncBuffer{}
	second := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "a"}, first)
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "b"}, second)

	GetLogger().Info("hello")
	assert.Contains(t, first.String(), "hello")
	assert.Empty(t, second.String(), "the second initialization must be a no-op")
}

func TestLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "not-a-level", Format: "json", ServiceName: "t"}, buf)

	GetLogger().Debug("invisible")
	GetLogger().Info("visible")

	out := buf.String()
	assert.NotContains(t, out, "invisible")
	assert.Contains(t, out, "visible")
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	assert.True(t, strings.Contains(logger.Name(), "fallback"))
}
