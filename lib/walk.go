package lib

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// WalkFileFunc is called once per regular file with its slash-separated path
// relative to the walk root. Returning an error stops the walk.
type WalkFileFunc func(rel string) error

// defaultDirBatchSize is used when caller passes <= 0; ReadDir(batchSize) uses fewer syscalls than reading one entry at a time.
const defaultDirBatchSize = 4096

// walkTree walks root using batched ReadDir(batchSize) and invokes walkFileFunc
// for each regular file. Directories are descended into but never reported.
func walkTree(ctx context.Context, root string, batchSize int, walkFileFunc WalkFileFunc) error {
	if batchSize <= 0 {
		batchSize = defaultDirBatchSize
	}
	return walkTreeBatched(ctx, root, "", batchSize, walkFileFunc)
}

// walkTreeBatched lists root/relDir in batches via File.ReadDir(batchSize) and
// recurses into subdirectories; skips symlinks and non-regular files. Listing
// failures come back as *IOError naming the directory.
func walkTreeBatched(ctx context.Context, root, relDir string, batchSize int, walkFileFunc WalkFileFunc) error {
	dirFile, err := os.Open(filepath.Join(root, filepath.FromSlash(relDir)))
	if err != nil {
		return ioError(displayRel(relDir), err)
	}
	defer dirFile.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, readErr := dirFile.ReadDir(batchSize)
		for _, entry := range entries {
			name := entry.Name()
			if name == "." || name == ".." {
				continue
			}
			relPath := path.Join(relDir, name)
			if entry.IsDir() {
				if err := walkTreeBatched(ctx, root, relPath, batchSize, walkFileFunc); err != nil {
					return err
				}
				continue
			}
			if entry.Type()&fs.ModeSymlink != 0 {
				continue
			}
			if entry.Type()&fs.ModeType != 0 {
				continue
			}
			if err := walkFileFunc(relPath); err != nil {
				return err
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return ioError(displayRel(relDir), readErr)
		}
	}
}

func displayRel(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
