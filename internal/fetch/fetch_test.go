package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchSavesWithURLBasename(t *testing.T) {
	payload := []byte("ACGTACGT")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files/data.fastq", r.URL.Path)
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, size, err := New(0).Fetch(context.Background(), srv.URL+"/files/data.fastq", dir)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "data.fastq"), path)
	require.Equal(t, int64(len(payload)), size)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFetchFollowsRedirects(t *testing.T) {
	payload := []byte("redirected bytes")
	mux := http.NewServeMux()
	mux.HandleFunc("/final/other.bam", func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	})
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final/other.bam", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	path, _, err := New(0).Fetch(context.Background(), srv.URL+"/start", dir)
	require.NoError(t, err)

	// The name comes from the post-redirect URL
	require.Equal(t, "other.bam", filepath.Base(path))
}

func TestFetchHonorsContentDisposition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="named.vcf.gz"`)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, _, err := New(0).Fetch(context.Background(), srv.URL+"/download?id=42", dir)
	require.NoError(t, err)
	require.Equal(t, "named.vcf.gz", filepath.Base(path))
}

func TestFetchFallbackName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, _, err := New(0).Fetch(context.Background(), srv.URL+"/", dir)
	require.NoError(t, err)
	require.Equal(t, "download", filepath.Base(path))
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, _, err := New(0).Fetch(context.Background(), srv.URL+"/missing", dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, _, err := New(0).Fetch(context.Background(), srv.URL+"/gone", t.TempDir())
	require.Error(t, err)
}
