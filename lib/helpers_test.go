package lib

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTree creates files under root from a relative-path -> content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func newTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, files)
	return root
}

func keys(inv Inventory) []string {
	return inv.Paths()
}

// memStorage is an in-memory Storage. Paths listed in failOpen return an
// error from Open.
type memStorage struct {
	root     string
	files    map[string]string
	missing  bool
	failOpen map[string]error
}

func (m *memStorage) Root() string { return m.root }

func (m *memStorage) Stat(context.Context) error {
	if m.missing {
		return os.ErrNotExist
	}
	return nil
}

func (m *memStorage) Walk(_ context.Context, fn WalkFileFunc) error {
	rels := make([]string, 0, len(m.files))
	for rel := range m.files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		if err := fn(rel); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStorage) Glob(_ context.Context, pattern string) ([]string, error) {
	var out []string
	for rel := range m.files {
		if ok, err := filepath.Match(pattern, rel); err != nil {
			return nil, errors.Join(ErrBadPattern, err)
		} else if ok {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (m *memStorage) Open(_ context.Context, rel string) (io.ReadCloser, error) {
	if err := m.failOpen[rel]; err != nil {
		return nil, err
	}
	content, ok := m.files[rel]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(content)), nil
}
