package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { flags = rootFlags{} })

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// setupWorkspace prepares a config dir on the memory backend with a note
// schema and returns the --config-dir flag value.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt),
		[]byte("backend: memory\n"), 0o644))
	schemaDir := filepath.Join(dir, schemaDirName)
	require.NoError(t, os.MkdirAll(schemaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(schemaDir, "note.yaml"),
		[]byte(exampleSchemaYAML), 0o644))
	return dir
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "satchel v"+version+"\n", out)
}

func TestUnknownCommand(t *testing.T) {
	_, err := runCmd(t, "frobnicate")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(errors.New("bad form")))

	attachErr := &sysError{errors.New("connection refused")}
	assert.Equal(t, exitSysError, exitCode(attachErr))
	// Classification survives wrapping.
	assert.Equal(t, exitSysError, exitCode(fmt.Errorf("init: %w", attachErr)))
}

func TestInitCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ws")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt),
		[]byte("backend: memory\n"), 0o644))

	out, err := runCmd(t, "--config-dir", dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized")
	assert.FileExists(t, filepath.Join(dir, schemaDirName, "example.yaml"))
}

func TestSchemaListCommand(t *testing.T) {
	dir := setupWorkspace(t)
	out, err := runCmd(t, "--config-dir", dir, "schema", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "note")
}

func TestPutGetListDelete(t *testing.T) {
	dir := setupWorkspace(t)
	formPath := filepath.Join(dir, "form.json")
	require.NoError(t, os.WriteFile(formPath,
		[]byte(`{"name":"groceries","type":"note","title":"shopping"}`), 0o644))

	// The memory backend does not persist across invocations, so Get
	// against a fresh process misses.
	out, err := runCmd(t, "--config-dir", dir, "put", "note", formPath)
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = runCmd(t, "--config-dir", dir, "get", "note", "groceries")
	assert.Error(t, err)
}

func TestEntityCommandsAgainstSQLite(t *testing.T) {
	dir := setupWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt),
		[]byte("backend: sqlite\n"), 0o644))
	dataDir := t.TempDir()

	formPath := filepath.Join(dir, "form.json")
	require.NoError(t, os.WriteFile(formPath,
		[]byte(`{"name":"groceries","type":"note","title":"shopping","pinned":true}`), 0o644))

	_, err := runCmd(t, "--config-dir", dir, "--data-dir", dataDir, "put", "note", formPath)
	require.NoError(t, err)

	out, err := runCmd(t, "--config-dir", dir, "--data-dir", dataDir, "get", "note", "groceries")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "shopping"`)

	out, err = runCmd(t, "--config-dir", dir, "--data-dir", dataDir, "list", "note")
	require.NoError(t, err)
	assert.Equal(t, "groceries\n", out)

	out, err = runCmd(t, "--config-dir", dir, "--data-dir", dataDir, "delete", "note", "groceries")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	out, err = runCmd(t, "--config-dir", dir, "--data-dir", dataDir, "list", "note")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestValidateCommand(t *testing.T) {
	dir := setupWorkspace(t)

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good,
		[]byte(`{"name":"ok","type":"note","title":"fine"}`), 0o644))
	out, err := runCmd(t, "--config-dir", dir, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	// Missing the required title.
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad,
		[]byte(`{"name":"broken","type":"note"}`), 0o644))
	_, err = runCmd(t, "--config-dir", dir, "validate", bad)
	assert.Error(t, err)
}

func TestExportImportCommands(t *testing.T) {
	dir := setupWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt),
		[]byte("backend: sqlite\n"), 0o644))
	dataDir := t.TempDir()

	formPath := filepath.Join(dir, "form.json")
	require.NoError(t, os.WriteFile(formPath,
		[]byte(`{"name":"keep","type":"note","title":"kept"}`), 0o644))
	_, err := runCmd(t, "--config-dir", dir, "--data-dir", dataDir, "put", "note", formPath)
	require.NoError(t, err)

	snapPath := filepath.Join(dir, "snap.jsonl")
	_, err = runCmd(t, "--config-dir", dir, "--data-dir", dataDir, "export", snapPath)
	require.NoError(t, err)
	assert.FileExists(t, snapPath)

	// Import into a fresh data dir and verify the entity arrived.
	freshData := t.TempDir()
	_, err = runCmd(t, "--config-dir", dir, "--data-dir", freshData, "import", snapPath)
	require.NoError(t, err)

	out, err := runCmd(t, "--config-dir", dir, "--data-dir", freshData, "list", "note")
	require.NoError(t, err)
	assert.Equal(t, "keep\n", out)
}
