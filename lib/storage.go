package lib

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

// Storage is the folder-walk contract a root must satisfy. Paths exchanged
// through it are slash-separated and relative to the root.
type Storage interface {
	// Root returns the location as the user supplied it (path or URI).
	Root() string
	// Stat returns an error if the root does not exist or cannot be enumerated.
	Stat(ctx context.Context) error
	// Walk calls fn for every regular file under the root, at any depth.
	Walk(ctx context.Context, fn WalkFileFunc) error
	// Glob returns the relative paths (files or directories) matching pattern.
	// Callers pass a root-relative, slash-separated pattern.
	Glob(ctx context.Context, pattern string) ([]string, error)
	// Open returns a reader over the file at rel, given as Walk reported it.
	Open(ctx context.Context, rel string) (io.ReadCloser, error)
}

// LocalStorage is a Storage over a directory on the local filesystem.
type LocalStorage struct {
	root         string
	dirBatchSize int
}

// NewLocalStorage returns a Storage rooted at root. dirBatchSize <= 0 uses the
// default ReadDir batch.
func NewLocalStorage(root string, dirBatchSize int) *LocalStorage {
	return &LocalStorage{root: root, dirBatchSize: dirBatchSize}
}

func (s *LocalStorage) Root() string { return s.root }

func (s *LocalStorage) Stat(_ context.Context) error {
	return EnsureDir(s.root)
}

func (s *LocalStorage) Walk(ctx context.Context, fn WalkFileFunc) error {
	return walkTree(ctx, s.root, s.dirBatchSize, fn)
}

// Glob matches pattern against the tree with doublestar semantics ("**"
// crosses directories). Results are normalized relative paths.
func (s *LocalStorage) Glob(_ context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}
	matches, err := doublestar.Glob(os.DirFS(s.root), pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, NormalizeRel(match))
	}
	return out, nil
}

func (s *LocalStorage) Open(_ context.Context, rel string) (io.ReadCloser, error) {
	abs, err := resolvePath(s.root, rel)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}
