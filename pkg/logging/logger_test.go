package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Fields(t *testing.T) {
	core, observedLogs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.With(NewField("sink", "memory")).Debug("csv writer closed",
		NewField("rows", 3),
		NewField("bytes", int64(42)),
		NewField("has_header", true),
	)

	logs := observedLogs.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "csv writer closed", logs[0].Message)

	fields := logs[0].ContextMap()
	assert.Equal(t, "memory", fields["sink"])
	assert.Equal(t, int64(3), fields["rows"])
	assert.Equal(t, int64(42), fields["bytes"])
	assert.Equal(t, true, fields["has_header"])
}

func TestZapLogger_WithError(t *testing.T) {
	core, observedLogs := observer.New(zapcore.InfoLevel)
	logger := NewZapLogger(zap.New(core))

	logger.WithError(errors.New("disk full")).Error("flush failed")

	logs := observedLogs.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "disk full", logs[0].ContextMap()["error"])
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "json")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger("info", "xml")
	assert.Error(t, err)

	assert.NotNil(t, NewLoggerFromConfig("info", "xml"))
}

func TestFromContext(t *testing.T) {
	t.Run("Returns attached logger", func(t *testing.T) {
		core, observedLogs := observer.New(zapcore.InfoLevel)
		ctx := WithLogger(context.Background(), NewZapLogger(zap.New(core)))

		FromContext(ctx).Info("hello")
		assert.Equal(t, 1, observedLogs.Len())
	})

	t.Run("Falls back to no-op", func(t *testing.T) {
		logger := FromContext(context.Background())
		assert.NotPanics(t, func() {
			logger.With(NewField("k", "v")).WithError(errors.New("x")).Info("ignored")
		})
	})
}
