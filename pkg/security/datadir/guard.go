// Package datadir confines derived file paths to the service's data
// directories. Session records, screenshots and golden-copy baselines are
// all named from external input (client ids, registry entries, job
// labels), so every such name is resolved through a Guard before it
// touches the filesystem.
package datadir

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Guard validates that file paths derived from external names stay inside
// one root data directory.
type Guard struct {
	root string
}

// NewGuard creates a guard rooted at dir. The directory does not need to
// exist yet.
func NewGuard(dir string) (*Guard, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}
	return &Guard{root: filepath.Clean(abs)}, nil
}

// Root returns the guarded directory.
func (g *Guard) Root() string {
	return g.root
}

// Join resolves name to a path under the root, rejecting names that would
// escape it. name may contain subdirectory separators but no traversal.
func (g *Guard) Join(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name cannot be empty")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("file name %q must be relative to the data directory", name)
	}

	path := filepath.Clean(filepath.Join(g.root, name))
	if !g.contains(path) {
		return "", fmt.Errorf("file name %q escapes the data directory", name)
	}
	return path, nil
}

// Validate checks that an already-built path lies under the root.
func (g *Guard) Validate(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if !g.contains(filepath.Clean(abs)) {
		return fmt.Errorf("path %q is outside the data directory", path)
	}
	return nil
}

func (g *Guard) contains(abs string) bool {
	if abs == g.root {
		return true
	}
	return strings.HasPrefix(abs, g.root+string(filepath.Separator))
}
