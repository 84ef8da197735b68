package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for s, want := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, want, got, s)
	}

	_, ok := ParseLogLevel("chatty")
	require.False(t, ok)
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := ToContext(context.Background(), New(&buf))
	ctx = WithKV(WithName(ctx, "engine"), "state", "ring")

	InfoKV(ctx, "entered", "sounds", 2)

	out := buf.String()
	assert.Contains(t, out, "entered")
	assert.Contains(t, out, "engine")
	assert.Contains(t, out, `"state": "ring"`)
	assert.Contains(t, out, `"sounds": 2`)
}

func TestFromContextFallsBack(t *testing.T) {
	assert.Same(t, Logger(), FromContext(context.Background()))
}
