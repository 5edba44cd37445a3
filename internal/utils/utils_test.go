package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "console")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("warn", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewLoggerRejectsUnknownValues(t *testing.T) {
	_, err := NewLogger("loud", "json")
	assert.Error(t, err)

	_, err = NewLogger("info", "xml")
	assert.Error(t, err)
}

func TestExecuteReturnsOutput(t *testing.T) {
	exec := NewSystemCommandExecutor(zap.NewNop())

	out, err := exec.Execute(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	_, err = exec.Execute(context.Background(), "false")
	assert.Error(t, err)
}

func TestGetDiskUsage(t *testing.T) {
	exec := NewSystemCommandExecutor(zap.NewNop())

	out, err := exec.GetDiskUsage(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, string(out), "1024-blocks")
}

var _ CommandExecutor = (*SystemCommandExecutor)(nil)
