package e2e

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeConfigFixture(home, "cat"))

	stdout, stderr, err := runHivemind(t, binaryPath, home,
		"memory", "store", "--type", "decision", "--category", "api",
		"REST API responses use snake_case fields",
	)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "[decision/api]")

	stdout, stderr, err = runHivemind(t, binaryPath, home, "memory", "recall", "snake_case")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "REST API responses use snake_case fields")

	stdout, stderr, err = runHivemind(t, binaryPath, home, "route", "Build a secure payment API")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "SEC-001")

	stdout, stderr, err = runHivemind(t, binaryPath, home, "Design a REST API for users")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "## Solution Architect")
	assert.Contains(t, stdout, "## Relevant memory")
}

func TestSmokeExitCodeWithoutEngines(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeConfigFixture(home, "hivemind-e2e-missing-codex"))

	_, _, err := runHivemind(t, binaryPath, home, "Design a REST API for users")
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected exit error, got %v", err)
	assert.Equal(t, 3, exitErr.ExitCode())
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "hivemind-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/hivemind")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build hivemind binary: %s", string(output))
	return binaryPath
}

func runHivemind(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"HIVEMIND_HOME="+filepath.Join(home, ".hivemind"),
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

// writeConfigFixture points codex at codexBinary; cat echoes the prompt back.
// claude never resolves.
func writeConfigFixture(home, codexBinary string) error {
	dir := filepath.Join(home, ".hivemind")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	cfg := fmt.Sprintf(`[orchestrator]
poll_interval = "20ms"

[engines.codex]
binary = %q
args = []

[engines.claude]
binary = "hivemind-e2e-missing-claude"
`, codexBinary)
	return os.WriteFile(filepath.Join(dir, "config.toml"), []byte(cfg), 0o600)
}
