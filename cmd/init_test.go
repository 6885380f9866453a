package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tempDir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(originalWD)) })

	return tempDir
}

func TestInitCmd_WritesConfigFile(t *testing.T) {
	tempDir := chdirTemp(t)

	cmd := newRootCmd()
	cmd.AddCommand(newInitCmd())

	out, err := execute(t, cmd, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+configFileName)

	contents, err := os.ReadFile(filepath.Join(tempDir, configFileName))
	require.NoError(t, err)
	assert.Contains(t, string(contents), "default_priority: 100")
	assert.Contains(t, string(contents), "import_prefix: ..")
}

func TestInitCmd_ErrorsWhenFileExists(t *testing.T) {
	tempDir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, configFileName), []byte("existing: true\n"), 0o644))

	cmd := newRootCmd()
	cmd.AddCommand(newInitCmd())

	_, err := execute(t, cmd, "init")
	require.Error(t, err)
}

func TestInitCmd_ForceOverwrites(t *testing.T) {
	tempDir := chdirTemp(t)

	target := filepath.Join(tempDir, configFileName)
	require.NoError(t, os.WriteFile(target, []byte("existing: true\n"), 0o644))

	cmd := newRootCmd()
	cmd.AddCommand(newInitCmd())

	_, err := execute(t, cmd, "init", "--force")
	require.NoError(t, err)

	contents, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.NotContains(t, string(contents), "existing: true")
	assert.Contains(t, string(contents), "default_priority: 100")
}
