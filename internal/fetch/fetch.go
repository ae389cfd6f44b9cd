// Package fetch downloads source files over HTTP into the scratch directory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/tomwhite/eggo/internal/progress"
)

// fallbackName is used when neither the response headers nor the URL carry
// a usable file name.
const fallbackName = "download"

// Fetcher downloads source files. Redirects are followed by the underlying
// client's default policy.
type Fetcher struct {
	client *http.Client
}

// New creates a fetcher. A zero timeout means the download is unbounded;
// the invoking framework enforces its own task timeout.
func New(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads rawURL into dir, naming the file the way the server
// suggests. It returns the local path and the number of bytes written.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dir string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("fetch of %s failed with status %d", rawURL, resp.StatusCode)
	}

	dest := filepath.Join(dir, filenameFor(resp))

	file, err := os.Create(dest)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file %s: %w", dest, err)
	}
	defer file.Close()

	reader := progress.NewReader(resp.Body)
	written, err := io.Copy(file, reader)
	if err != nil {
		return "", 0, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	if err := file.Sync(); err != nil {
		return "", 0, fmt.Errorf("failed to sync %s: %w", dest, err)
	}

	return dest, written, nil
}

// filenameFor picks the local file name: Content-Disposition first, then
// the basename of the final (post-redirect) URL.
func filenameFor(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := filepath.Base(params["filename"]); name != "" && name != "." && name != string(filepath.Separator) {
				return name
			}
		}
	}

	return nameFromURL(resp.Request.URL)
}

func nameFromURL(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return fallbackName
	}
	return base
}
