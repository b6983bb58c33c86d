package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestStageAddsField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf).Stage("supervisor")

	logger.Info().Int("pid", 42).Msg("backend started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "supervisor", entry["stage"])
	assert.Equal(t, "backend started", entry["message"])
	assert.Equal(t, float64(42), entry["pid"])
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNopLogger()
	logger.Error().Msg("ignored")
	logger.Stage("x").Infof("ignored %d", 1)
}

func TestNewShellLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()

	logger, file, err := NewShellLogger(dir)
	require.NoError(t, err)
	require.NotNil(t, file)
	defer file.Close()

	logger.Warn().Msg("written to file")

	data, err := os.ReadFile(filepath.Join(dir, "aurora.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
