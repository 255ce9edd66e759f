package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuild_JSONLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l, done := Build(Options{Level: "warn", JSON: true, Out: zapcore.AddSync(&buf)})
	l.Info("dropped")
	l.Warn("kept", zap.String("user_id", "u1"))
	done()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "u1", rec["user_id"])
	assert.Contains(t, rec, "ts")
}

func TestBuild_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, done := Build(Options{Level: "loud", JSON: true, Out: zapcore.AddSync(&buf)})
	l.Debug("hidden")
	l.Info("shown")
	done()
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestToWriter(t *testing.T) {
	var buf bytes.Buffer
	l, done := Build(Options{Level: "debug", JSON: true, Out: zapcore.AddSync(&buf)})
	_, _ = fmt.Fprintln(ToWriter(l, zapcore.InfoLevel), "[GIN-debug] route registered")
	ToStdLogger(l, zapcore.WarnLevel).Print("slow sql")
	done()
	assert.Contains(t, buf.String(), "route registered")
	assert.Contains(t, buf.String(), "slow sql")
}
