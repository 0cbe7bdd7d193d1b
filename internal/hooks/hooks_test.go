package hooks

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeHooks(t *testing.T, projectDir, script string) {
	t.Helper()
	dir := filepath.Join(projectDir, ".enginectl")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(script), 0644))
}

func TestLoad_NilWithoutScript(t *testing.T) {
	h := Load(t.TempDir(), slog.Default())
	require.Nil(t, h)

	// Nil hooks are safe to call.
	h.OnBuildStart("build")
	h.OnBuildSuccess("build")
	h.OnBuildFailure("build", "boom")
}

func TestHooksInvoked(t *testing.T) {
	dir := t.TempDir()
	writeHooks(t, dir, `
function on_build_success(op)
  log("success " .. op)
end

function on_build_failure(op, msg)
  log("failure " .. op .. ": " .. msg)
end
`)

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	h := Load(dir, log)
	require.NotNil(t, h)

	h.OnBuildSuccess("build")
	require.Contains(t, buf.String(), "success build")

	h.OnBuildFailure("regenerate", "exit 1")
	require.Contains(t, buf.String(), "failure regenerate: exit 1")

	// Undefined hooks are silently skipped.
	h.OnBuildStart("build")
}

func TestHookErrorIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeHooks(t, dir, `
function on_build_start(op)
  error("hook exploded")
end
`)

	var buf bytes.Buffer
	h := Load(dir, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NotNil(t, h)

	h.OnBuildStart("build")
	require.Contains(t, buf.String(), "hook failed")
}

func TestSandboxBlocksFileAccess(t *testing.T) {
	dir := t.TempDir()
	writeHooks(t, dir, `
function on_build_start(op)
  dofile("/etc/hostname")
end
`)

	var buf bytes.Buffer
	h := Load(dir, slog.New(slog.NewTextHandler(&buf, nil)))

	h.OnBuildStart("build")
	require.Contains(t, buf.String(), "hook failed")
}
