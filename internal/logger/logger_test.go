package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: WarnLevel, Output: &buf})

	l.Info("hidden message")
	l.Warn("visible message", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden message")
	assert.Contains(t, out, "visible message")
	assert.Contains(t, out, "key=value")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: DebugLevel, JSON: true, Output: &buf})

	l.Debug("debug entry", "cartId", "cart-1")

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "debug entry", entry["msg"])
	assert.Equal(t, "cart-1", entry["cartId"])
}

func TestWith_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	l := With(New(&Config{Level: InfoLevel, Output: &buf}), "component", "engine")

	l.Info("started")

	assert.Contains(t, buf.String(), "component=engine")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing happens")
}
