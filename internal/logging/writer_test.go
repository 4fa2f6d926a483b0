package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriter_WritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.jsonl")

	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestRotatingWriter_RotatesAtSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.jsonl")

	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)
	defer w.Close()

	// Exceed the 1MB limit in two writes to force one rotation.
	chunk := bytes.Repeat([]byte("x"), 600*1024)
	_, err = w.Write(chunk)
	require.NoError(t, err)
	_, err = w.Write(chunk)
	require.NoError(t, err)

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "rotated file should exist")
}

func TestSetup_NoFileLogsToStderr(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "debug"})
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(t.Context(), parseLevel("debug")))
}

func TestSetup_CreatesLogDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()

	logger.Info("probe", "k", "v")

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"probe"`))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, parseLevel("debug").String(), "DEBUG")
	assert.Equal(t, parseLevel("WARN").String(), "WARN")
	assert.Equal(t, parseLevel("bogus").String(), "INFO")
}
