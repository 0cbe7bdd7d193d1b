package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScan_FindsProjectFiles(t *testing.T) {
	root := t.TempDir()
	project := filepath.Join(root, "Game.uproject")
	require.NoError(t, os.WriteFile(project, []byte("{}"), 0644))

	nested := filepath.Join(root, "Other", "Demo.uproject")
	require.NoError(t, os.MkdirAll(filepath.Dir(nested), 0755))
	require.NoError(t, os.WriteFile(nested, []byte("{}"), 0644))

	found, err := Scan(root)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{project, nested}, found)
}

func TestScan_SkipsGeneratedDirectories(t *testing.T) {
	root := t.TempDir()

	buried := filepath.Join(root, "Intermediate", "Copy.uproject")
	require.NoError(t, os.MkdirAll(filepath.Dir(buried), 0755))
	require.NoError(t, os.WriteFile(buried, []byte("{}"), 0644))

	hidden := filepath.Join(root, ".backup", "Old.uproject")
	require.NoError(t, os.MkdirAll(filepath.Dir(hidden), 0755))
	require.NoError(t, os.WriteFile(hidden, []byte("{}"), 0644))

	found, err := Scan(root)
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestScan_IgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Game.sln"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte(""), 0644))

	found, err := Scan(root)
	require.NoError(t, err)
	require.Empty(t, found)
}
