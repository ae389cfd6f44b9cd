// Package decompress expands gzip archives in the scratch directory.
package decompress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
)

const gzipSuffix = ".gz"

// ExpandAll decompresses every gzip-suffixed file in dir in place: each
// archive is replaced by its decompressed contents with the suffix
// stripped. It is an error for dir to contain no matching file, matching
// the contract of running a decompressor over an empty glob.
func ExpandAll(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+gzipSuffix))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", gzipSuffix, dir)
	}

	var expanded []string
	for _, src := range matches {
		dest, err := expand(src)
		if err != nil {
			return nil, err
		}
		expanded = append(expanded, dest)
	}

	return expanded, nil
}

// expand decompresses one archive and removes the original.
func expand(src string) (string, error) {
	dest := strings.TrimSuffix(src, gzipSuffix)

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	reader, err := pgzip.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("%s is not a valid gzip archive: %w", src, err)
	}
	defer reader.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to decompress %s: %w", src, err)
	}

	if err := out.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync %s: %w", dest, err)
	}

	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("failed to remove archive %s: %w", src, err)
	}

	return dest, nil
}
