package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToLogFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := New(Options{Dir: dir})
	require.NoError(t, err)

	logger.Debug("hidden at info level")
	logger.Info("session created")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "session created", record["msg"])
	assert.Equal(t, "hivemind", record["logger"])
	assert.Contains(t, record, "ts")
}

func TestNewRejectsEmptyDir(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	assert.ErrorContains(t, err, "log directory is empty")
}
