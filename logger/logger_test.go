package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(OutputOption(&buf), NameOption("test"))

	log.WithFields(map[string]any{"kind": "engine"}).Infof("decided %s", "forward")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "decided forward", entry["msg"])
	assert.Equal(t, "engine", entry["kind"])
	assert.Equal(t, "test", entry["logger"])
	assert.Equal(t, "info", entry["level"])
	assert.NotContains(t, entry, "caller")
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(OutputOption(&buf), LevelOption(WarnLevel), FormatOption(TextFormat))

	log.Info("hidden")
	assert.Zero(t, buf.Len())
	assert.Equal(t, WarnLevel, log.GetLevel())
	assert.True(t, log.IsLevelEnabled(ErrorLevel))
	assert.False(t, log.IsLevelEnabled(DebugLevel))
	assert.False(t, log.IsLevelEnabled("bogus"))

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerDebugCaller(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(OutputOption(&buf), LevelOption(DebugLevel))
	log.Debug("here")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry["caller"], "logger/logger_test.go")
}

func TestSetDefault(t *testing.T) {
	old := Default()
	defer SetDefault(old)

	SetDefault(nil)
	assert.Same(t, old, Default())

	nop := Nop()
	SetDefault(nop)
	assert.Same(t, nop, Default())
}
