package lib

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInventory_oneEntryPerRegularFile(t *testing.T) {
	root := newTree(t, map[string]string{
		"top.txt":        "1",
		"sub/a.txt":      "2",
		"sub/deep/b.bin": "3",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "only", "dirs"), 0755))

	inv, err := InventoryFolder(context.Background(), root, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"sub/a.txt", "sub/deep/b.bin", "top.txt"}, keys(inv))
	want, _ := HashBytes([]byte("2"), DefaultAlgorithm)
	assert.Equal(t, want, inv["sub/a.txt"])
}

func TestBuildInventory_nestedPathIsRelative(t *testing.T) {
	root := newTree(t, map[string]string{"sub/dir/c.txt": "c"})
	inv, err := InventoryFolder(context.Background(), root, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"sub/dir/c.txt"}, keys(inv))
}

func TestBuildInventory_excludeGlob(t *testing.T) {
	root := newTree(t, map[string]string{"x.txt": "x", "x.log": "log"})
	inv, err := InventoryFolder(context.Background(), root, "*.log")
	require.NoError(t, err)
	assert.Equal(t, []string{"x.txt"}, keys(inv))
}

func TestBuildInventory_emptyRoot(t *testing.T) {
	inv, err := InventoryFolder(context.Background(), t.TempDir(), "")
	require.NoError(t, err)
	assert.NotNil(t, inv)
	assert.Empty(t, inv)
}

func TestBuildInventory_nonexistentRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does", "not", "exist")
	inv, err := InventoryFolder(context.Background(), missing, "")
	assert.Nil(t, inv)
	assert.ErrorIs(t, err, ErrRootNotFound)
	var notFound *RootNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, missing, notFound.Root)
}

func TestBuildInventory_fileAsRootIsNotFound(t *testing.T) {
	root := newTree(t, map[string]string{"f": "x"})
	_, err := InventoryFolder(context.Background(), filepath.Join(root, "f"), "")
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestBuildInventory_exclusionIsSubtractive(t *testing.T) {
	root := newTree(t, map[string]string{
		"keep.txt":        "k",
		"drop.log":        "d",
		"logs/a.txt":      "a",
		"logs/deep/b.txt": "b",
		"src/logs.txt":    "s",
		"src/c.log":       "c",
	})
	ctx := context.Background()
	all, err := InventoryFolder(ctx, root, "")
	require.NoError(t, err)

	tests := []struct {
		pattern string
		removed []string
	}{
		{pattern: "*.log", removed: []string{"drop.log"}},
		{pattern: "**/*.log", removed: []string{"drop.log", "src/c.log"}},
		{pattern: "logs", removed: []string{"logs/a.txt", "logs/deep/b.txt"}},
		{pattern: "logs/**", removed: []string{"logs/a.txt", "logs/deep/b.txt"}},
		{pattern: "nothing-matches", removed: nil},
		{pattern: "re:\\.log$", removed: []string{"drop.log", "src/c.log"}},
		{pattern: "re:^logs/", removed: []string{"logs/a.txt", "logs/deep/b.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			inv, err := InventoryFolder(ctx, root, tt.pattern)
			require.NoError(t, err)
			want := Inventory{}
			for rel, fingerprint := range all {
				want[rel] = fingerprint
			}
			for _, rel := range tt.removed {
				delete(want, rel)
			}
			assert.Equal(t, want, inv)

			again, err := InventoryFolder(ctx, root, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, inv, again)
		})
	}
}

func TestBuildInventory_doubleStarExcludesEverything(t *testing.T) {
	root := newTree(t, map[string]string{"a": "1", "b/c": "2"})
	inv, err := InventoryFolder(context.Background(), root, "**")
	require.NoError(t, err)
	assert.Empty(t, inv)
}

func TestBuildInventory_badPattern(t *testing.T) {
	root := newTree(t, map[string]string{"a": "1"})
	for _, pattern := range []string{"[", "re:("} {
		_, err := InventoryFolder(context.Background(), root, pattern)
		assert.ErrorIs(t, err, ErrBadPattern, pattern)
	}
}

func TestBuildInventory_globIsRootRelative(t *testing.T) {
	root := newTree(t, map[string]string{"x.log": "1", "logs/a.txt": "2", "keep.txt": "3"})
	ctx := context.Background()
	for _, pattern := range []string{"./x.log", "././x.log", ".//x.log"} {
		inv, err := InventoryFolder(ctx, root, pattern)
		require.NoError(t, err, pattern)
		assert.Equal(t, []string{"keep.txt", "logs/a.txt"}, keys(inv), pattern)
	}
	inv, err := InventoryFolder(ctx, root, "./logs")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt", "x.log"}, keys(inv))

	for _, pattern := range []string{"/logs", "/**", "./"} {
		_, err := InventoryFolder(ctx, root, pattern)
		assert.ErrorIs(t, err, ErrBadPattern, pattern)
	}
}

func TestBuildInventory_globCleanedBeforeStorage(t *testing.T) {
	store := &memStorage{root: "mem", files: map[string]string{"x.log": "1", "a.txt": "2"}}
	inv, err := BuildInventory(context.Background(), store, InventoryOptions{Exclude: "./x.log"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, keys(inv))
}

func TestBuildInventory_opensStorageNativePath(t *testing.T) {
	store := &memStorage{root: "mem", files: map[string]string{"a.txt": "A", "sub//b.txt": "B"}}
	inv, err := BuildInventory(context.Background(), store, InventoryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, keys(inv))
	want, err := HashBytes([]byte("B"), DefaultAlgorithm)
	require.NoError(t, err)
	assert.Equal(t, want, inv["sub/b.txt"])
}

func TestBuildInventory_pathsNormalizingToSameKeyFail(t *testing.T) {
	store := &memStorage{root: "mem", files: map[string]string{"sub/b.txt": "one", "sub//b.txt": "two"}}
	inv, err := BuildInventory(context.Background(), store, InventoryOptions{})
	assert.Nil(t, inv)
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "err = %v", err)
	assert.Equal(t, "sub/b.txt", ioErr.Path)
	assert.ErrorContains(t, err, "both resolve to")
}

func TestBuildInventory_normalizedAcrossRoots(t *testing.T) {
	files := map[string]string{"a.txt": "A", "x/y/z.txt": "Z"}
	short := newTree(t, files)
	long := filepath.Join(t.TempDir(), "much", "longer", "prefix", "root")
	writeTree(t, long, files)
	ctx := context.Background()

	shortInv, err := InventoryFolder(ctx, short, "")
	require.NoError(t, err)
	longInv, err := InventoryFolder(ctx, long+string(filepath.Separator), "")
	require.NoError(t, err)
	assert.Equal(t, shortInv, longInv)
}

func TestBuildInventory_workerCountDoesNotChangeResult(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d/e", "d/f", "g/h/i", "g/h/j"} {
		files[name] = "content of " + name
	}
	store := NewLocalStorage(newTree(t, files), 0)
	ctx := context.Background()
	single, err := BuildInventory(ctx, store, InventoryOptions{Workers: 1})
	require.NoError(t, err)
	many, err := BuildInventory(ctx, store, InventoryOptions{Workers: 16, ChunkSize: 3})
	require.NoError(t, err)
	assert.Equal(t, single, many)
	assert.Len(t, single, len(files))
}

func TestBuildInventory_readErrorFailsWholeCall(t *testing.T) {
	store := &memStorage{
		root:     "mem",
		files:    map[string]string{"ok.txt": "fine", "bad.txt": "never read"},
		failOpen: map[string]error{"bad.txt": os.ErrPermission},
	}
	inv, err := BuildInventory(context.Background(), store, InventoryOptions{Workers: 2})
	assert.Nil(t, inv)
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "err = %v", err)
	assert.Equal(t, "bad.txt", ioErr.Path)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestBuildInventory_missingStorageRoot(t *testing.T) {
	store := &memStorage{root: "mem://gone", missing: true}
	_, err := BuildInventory(context.Background(), store, InventoryOptions{})
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestBuildInventory_cancelledContextIsIOError(t *testing.T) {
	root := newTree(t, map[string]string{"a": "1", "b": "2"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildInventory(ctx, NewLocalStorage(root, 0), InventoryOptions{})
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "err = %v", err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildInventory_unknownAlgorithm(t *testing.T) {
	_, err := BuildInventory(context.Background(), NewLocalStorage(t.TempDir(), 0), InventoryOptions{Algorithm: "crc"})
	assert.Error(t, err)
}

func TestBuildInventory_recordsProgress(t *testing.T) {
	root := newTree(t, map[string]string{"a.txt": "abc", "b.log": "de", "c.txt": "f"})
	progress := &ProgressCounts{}
	_, err := BuildInventory(context.Background(), NewLocalStorage(root, 0), InventoryOptions{Exclude: "*.log", Progress: progress})
	require.NoError(t, err)
	snapshot := progress.Snapshot()
	assert.Equal(t, int64(3), snapshot.Discovered)
	assert.Equal(t, int64(1), snapshot.Excluded)
	assert.Equal(t, int64(2), snapshot.Hashed)
	assert.Equal(t, int64(4), snapshot.BytesHashed)
	assert.Positive(t, snapshot.Elapsed)
}

func TestInventory_Paths_sorted(t *testing.T) {
	inv := Inventory{"b": "2", "a/z": "1", "a": "0"}
	assert.Equal(t, []string{"a", "a/z", "b"}, inv.Paths())
}
