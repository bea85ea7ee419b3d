package cmdutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	require.Equal(t, zapcore.InfoLevel, Level(false, false))
	require.Equal(t, zapcore.DebugLevel, Level(true, false))
	require.Equal(t, zapcore.WarnLevel, Level(true, true))
}

func TestNewLoggerFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, false, true)
	log.Info("hidden")
	log.Warn("shown", zap.Int("chunks", 4))
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "WARN")
	require.Contains(t, buf.String(), "chunks")
}

func TestWarnf(t *testing.T) {
	var buf bytes.Buffer
	Warnf(&buf, true, "x %d", 1)
	require.Empty(t, buf.String())
	Warnf(&buf, false, "x %d", 1)
	require.Equal(t, "WARN: x 1\n", buf.String())
}
