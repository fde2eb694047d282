package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":    zapcore.DebugLevel,
		"info":     zapcore.InfoLevel,
		"":         zapcore.InfoLevel,
		"WARN":     zapcore.WarnLevel,
		"error":    zapcore.ErrorLevel,
		"critical": zapcore.DPanicLevel,
		"fatal":    zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextHelpers ensures named and annotated loggers travel through the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "tracker")
	ctx = WithKV(ctx, "session", 7)

	InfoKV(ctx, "hello", "event_id", 1)
	CriticalKV(ctx, "stream lost")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "tracker", entries[0].LoggerName)
	require.Equal(t, int64(7), entries[0].ContextMap()["session"])
	require.Equal(t, int64(1), entries[0].ContextMap()["event_id"])
	require.Equal(t, zapcore.DPanicLevel, entries[1].Level)
}

// TestFromContext_FallsBackToGlobal checks that a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestNewWithFile writes through the rotating file sink.
func TestNewWithFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "adapter.log")

	l := NewWithFile(zapcore.InfoLevel, FileOptions{Path: path})
	l.Infow("alarm raised", "event_id", 42)
	_ = l.Sync() //nolint:errcheck // Syncing stdout fails on some terminals.

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"event_id":42`)
}
