package lib

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NormalizeRel turns a root-relative path into the inventory key form:
// slash-separated, cleaned, no leading "./" or "/".
func NormalizeRel(rel string) string {
	cleaned := path.Clean(filepath.ToSlash(rel))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// resolvePath resolves a relative path against root and returns the absolute path
// if it stays under root; otherwise returns an error (path traversal rejected).
func resolvePath(root, rel string) (string, error) {
	if rel == "" {
		return filepath.Clean(root), nil
	}
	clean := filepath.Clean(filepath.Join(root, filepath.FromSlash(rel)))
	rootClean := filepath.Clean(root)
	if !pathUnder(clean, rootClean) {
		return "", errors.New("path escapes root")
	}
	return clean, nil
}

// pathUnder reports whether path is under or equal to root.
func pathUnder(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// EnsureDir returns nil if path is an existing directory. A missing path
// yields an error matching fs.ErrNotExist.
func EnsureDir(path string) error {
	if path == "" {
		return fmt.Errorf("path is empty: %w", fs.ErrNotExist)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s: %w", path, fs.ErrNotExist)
	}
	return nil
}
