// Package workspace manages the per-task scratch directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const dirPrefix = "tmp_eggo_"

// Workspace is a uniquely-named scratch directory owned by one task. It is
// created once, never shared, and removed unconditionally by Close on every
// exit path.
type Workspace struct {
	dir string
}

// New creates a fresh scratch directory under root. An empty root means the
// system temp dir. Names embed a random UUID so concurrent tasks on the
// same host never collide.
func New(root string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}

	dir := filepath.Join(root, dirPrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	return &Workspace{dir: dir}, nil
}

// Dir returns the scratch directory path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Files returns the full paths of the regular files currently in the
// scratch directory.
func (w *Workspace) Files() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scratch directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(w.dir, entry.Name()))
		}
	}

	return files, nil
}

// Close removes the scratch directory and everything in it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.dir)
}
