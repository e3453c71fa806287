package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", FormatJSON)

	log.Info().Msg("dropped")
	log.Warn().Str("model", "deepseek/deepseek-r1").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "deepseek/deepseek-r1", entry["model"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriterConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", FormatConsole)
	log.Debug().Msg("streaming")

	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "streaming")
}

func TestFormatFromEnv(t *testing.T) {
	t.Setenv("ENV", "")
	assert.Equal(t, FormatConsole, formatFromEnv())
	t.Setenv("ENV", "production")
	assert.Equal(t, FormatJSON, formatFromEnv())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}
