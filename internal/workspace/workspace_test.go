package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCreatesUniqueDirectories(t *testing.T) {
	root := t.TempDir()

	first, err := New(root)
	require.NoError(t, err)
	second, err := New(root)
	require.NoError(t, err)

	require.NotEqual(t, first.Dir(), second.Dir())
	require.True(t, strings.HasPrefix(filepath.Base(first.Dir()), "tmp_eggo_"))

	for _, ws := range []*Workspace{first, second} {
		info, err := os.Stat(ws.Dir())
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}

	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
}

func TestNewDefaultRoot(t *testing.T) {
	ws, err := New("")
	require.NoError(t, err)
	defer ws.Close()

	require.True(t, strings.HasPrefix(ws.Dir(), os.TempDir()))
}

func TestCloseRemovesDirectory(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(ws.Dir(), "data.fastq"), []byte("payload"), 0o644))
	require.NoError(t, ws.Close())

	_, err = os.Stat(ws.Dir())
	require.True(t, os.IsNotExist(err))
}

func TestFilesListsRegularFilesOnly(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, os.WriteFile(filepath.Join(ws.Dir(), "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ws.Dir(), "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(ws.Dir(), "sub"), 0o755))

	files, err := ws.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)

	names := []string{filepath.Base(files[0]), filepath.Base(files[1])}
	require.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
}

func TestFilesEmpty(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	defer ws.Close()

	files, err := ws.Files()
	require.NoError(t, err)
	require.Empty(t, files)
}
