package decompress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/require"
)

func writeGzip(t *testing.T, path string, payload []byte) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	writer := pgzip.NewWriter(file)
	_, err = writer.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
}

func TestExpandAllReplacesArchive(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("@read1\nACGT\n+\nFFFF\n")
	writeGzip(t, filepath.Join(dir, "data.fastq.gz"), payload)

	expanded, err := ExpandAll(dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "data.fastq")}, expanded)

	got, err := os.ReadFile(filepath.Join(dir, "data.fastq"))
	require.NoError(t, err)
	require.Equal(t, payload, got)

	// The compressed artifact is gone
	_, err = os.Stat(filepath.Join(dir, "data.fastq.gz"))
	require.True(t, os.IsNotExist(err))
}

func TestExpandAllMultipleArchives(t *testing.T) {
	dir := t.TempDir()
	writeGzip(t, filepath.Join(dir, "a.txt.gz"), []byte("aaa"))
	writeGzip(t, filepath.Join(dir, "b.txt.gz"), []byte("bbb"))

	expanded, err := ExpandAll(dir)
	require.NoError(t, err)
	require.Len(t, expanded, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		require.NotContains(t, entry.Name(), ".gz")
	}
}

func TestExpandAllNoArchives(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.bam"), []byte("x"), 0o644))

	_, err := ExpandAll(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no .gz files")
}

func TestExpandAllCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.gz"), []byte("not gzip data"), 0o644))

	_, err := ExpandAll(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a valid gzip archive")
}
