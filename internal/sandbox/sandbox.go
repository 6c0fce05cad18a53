package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// ValidatePath checks if targetPath is safely within root.
// It resolves symlinks, normalizes paths, and verifies containment.
// Returns the resolved absolute path or an error.
func ValidatePath(root, targetPath string) (string, error) {
	realRoot, err := realPath(root)
	if err != nil {
		return "", err
	}

	candidate := filepath.Clean(filepath.Join(realRoot, targetPath))

	// The path may not exist yet, so resolve as much as we can.
	resolved, err := resolveExistingPath(candidate)
	if err != nil {
		return "", fmt.Errorf("resolving target path: %w", err)
	}

	if !within(realRoot, resolved) {
		return "", fmt.Errorf("path '%s' resolves to '%s' which is outside '%s'", targetPath, resolved, realRoot)
	}

	return resolved, nil
}

func realPath(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving root symlinks: %w", err)
	}
	return realRoot, nil
}

// within reports whether path equals root or lies beneath it.
// The trailing separator keeps "dist2" from matching "dist".
func within(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// resolveExistingPath resolves symlinks for the longest existing prefix of the path,
// then appends the non-existing suffix.
func resolveExistingPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	if dir == path {
		return path, nil
	}

	resolvedDir, err := resolveExistingPath(dir)
	if err != nil {
		return "", err
	}

	return filepath.Join(resolvedDir, base), nil
}

// SafeWrite atomically writes content to relPath inside root, creating
// parent directories as needed.
func SafeWrite(root, relPath string, content []byte, perm os.FileMode) error {
	resolved, err := ValidatePath(root, relPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := renameio.WriteFile(resolved, content, perm); err != nil {
		return fmt.Errorf("writing %s: %w", resolved, err)
	}
	return nil
}

// CleanDir removes everything inside dir, leaving dir itself in place.
// It refuses to clean a filesystem root or any directory that contains one
// of the protected paths (typically the project context and entry files).
func CleanDir(dir string, protected ...string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	realDir, err := realPath(dir)
	if err != nil {
		return err
	}

	if filepath.Dir(realDir) == realDir {
		return fmt.Errorf("refusing to clean filesystem root %s", realDir)
	}
	for _, p := range protected {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		resolved, err := resolveExistingPath(abs)
		if err != nil {
			continue
		}
		if within(realDir, resolved) {
			return fmt.Errorf("refusing to clean %s: it contains %s", realDir, p)
		}
	}

	entries, err := os.ReadDir(realDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", realDir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(realDir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}
