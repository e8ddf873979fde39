package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesLeveledJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.Info("recipient created:", "alice")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "recipient created: alice", line["message"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithLevel(&buf, "warn")

	l.Debug("hidden")
	l.Infof("hidden %d", 1)
	assert.Empty(t, buf.String())

	l.Warnf("profile fetch failed for %s", "bob")
	assert.Contains(t, buf.String(), "profile fetch failed for bob")
}

func TestLoggerUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithLevel(&buf, "loud")

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerWithField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf).With("workspace_id", "ws-1")

	l.Error("boom")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ws-1", line["workspace_id"])
	assert.Equal(t, "error", line["level"])
}
