package lib

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Inventory maps relative path to fingerprint for one root at one point in
// time. Directories never appear. Treat it as read-only once returned.
type Inventory map[string]Fingerprint

// Paths returns the inventory keys sorted.
func (inv Inventory) Paths() []string {
	paths := make([]string, 0, len(inv))
	for rel := range inv {
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	return paths
}

// InventoryOptions controls one BuildInventory call. The zero value excludes
// nothing, hashes with DefaultAlgorithm in DefaultChunkSize reads, and uses
// one worker per CPU.
type InventoryOptions struct {
	Exclude   string
	Algorithm string
	ChunkSize int
	Workers   int
	Progress  *ProgressCounts
	Logger    *Logger
}

func (opts InventoryOptions) withDefaults() InventoryOptions {
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = NopLogger()
	}
	return opts
}

// InventoryFolder builds the inventory of a local directory with default
// hashing options.
func InventoryFolder(ctx context.Context, root, exclude string) (Inventory, error) {
	return BuildInventory(ctx, NewLocalStorage(root, 0), InventoryOptions{Exclude: exclude})
}

// BuildInventory walks store, drops files selected by opts.Exclude, and
// fingerprints the rest. A missing root fails with *RootNotFoundError; any
// unreadable file fails the whole call with *IOError. No partial inventory is
// ever returned.
func BuildInventory(ctx context.Context, store Storage, opts InventoryOptions) (Inventory, error) {
	opts = opts.withDefaults()
	if _, err := newHasher(opts.Algorithm); err != nil {
		return nil, err
	}
	if err := store.Stat(ctx); err != nil {
		return nil, &RootNotFoundError{Root: store.Root(), Err: err}
	}
	opts.Progress.markStarted()
	log := opts.Logger

	files, err := walkFiles(ctx, store)
	if err != nil {
		return nil, err
	}
	opts.Progress.addDiscovered(int64(len(files)))

	keys := make([]string, len(files))
	for idx, file := range files {
		keys[idx] = file.key
	}
	excluded, err := resolveExclusions(ctx, store, opts.Exclude, keys)
	if err != nil {
		return nil, err
	}
	kept := files[:0]
	for _, file := range files {
		if excluded.excludes(file.key) {
			continue
		}
		kept = append(kept, file)
	}
	opts.Progress.addExcluded(int64(len(files) - len(kept)))
	log.Debug().Str("root", store.Root()).Int("files", len(files)).Int("kept", len(kept)).Str("exclude", opts.Exclude).Msg("walk complete")

	inv, err := hashAll(ctx, store, kept, opts)
	if err != nil {
		log.Debug().Str("root", store.Root()).Err(err).Msg("inventory failed")
		return nil, err
	}
	log.Debug().Str("root", store.Root()).Int("entries", len(inv)).Msg("inventory built")
	return inv, nil
}

// walkedFile pairs the inventory key with the path the storage reported.
// Open always gets the native form; for S3 the two differ when a key holds
// "//" or "./" segments.
type walkedFile struct {
	key    string
	native string
}

// walkFiles collects every file under store. Two native paths that normalize
// to the same key fail the walk instead of sharing one inventory entry.
func walkFiles(ctx context.Context, store Storage) ([]walkedFile, error) {
	var files []walkedFile
	seen := make(map[string]string)
	err := store.Walk(ctx, func(rel string) error {
		key := NormalizeRel(rel)
		if other, ok := seen[key]; ok {
			return ioError(key, fmt.Errorf("%q and %q both resolve to %q", other, rel, key))
		}
		seen[key] = rel
		files = append(files, walkedFile{key: key, native: rel})
		return nil
	})
	if err != nil {
		return nil, ioError(store.Root(), err)
	}
	return files, nil
}

type hashResult struct {
	rel         string
	fingerprint Fingerprint
}

// hashAll fans files out to opts.Workers hashing goroutines and assembles the
// inventory on the calling goroutine. The first failure cancels the rest.
func hashAll(ctx context.Context, store Storage, files []walkedFile, opts InventoryOptions) (Inventory, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	jobCh := make(chan walkedFile)
	resultCh := make(chan hashResult, opts.Workers*2)

	group.Go(func() error {
		defer close(jobCh)
		for _, file := range files {
			select {
			case jobCh <- file:
			case <-groupCtx.Done():
				return ioError(store.Root(), groupCtx.Err())
			}
		}
		return nil
	})

	var workerWg sync.WaitGroup
	for workerIdx := 0; workerIdx < opts.Workers; workerIdx++ {
		workerWg.Add(1)
		group.Go(func() error {
			defer workerWg.Done()
			for file := range jobCh {
				fingerprint, size, err := fingerprintEntry(groupCtx, store, file, opts)
				if err != nil {
					return err
				}
				opts.Progress.recordHashed(workerIdx, size)
				select {
				case resultCh <- hashResult{rel: file.key, fingerprint: fingerprint}:
				case <-groupCtx.Done():
					return ioError(file.key, groupCtx.Err())
				}
			}
			return nil
		})
	}
	go func() {
		workerWg.Wait()
		close(resultCh)
	}()

	inv := make(Inventory, len(files))
	for result := range resultCh {
		inv[result.rel] = result.fingerprint
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return inv, nil
}

func fingerprintEntry(ctx context.Context, store Storage, file walkedFile, opts InventoryOptions) (Fingerprint, int64, error) {
	reader, err := store.Open(ctx, file.native)
	if err != nil {
		return "", 0, ioError(file.key, err)
	}
	defer reader.Close()
	fingerprint, size, err := HashReader(ctx, reader, opts.Algorithm, opts.ChunkSize)
	if err != nil {
		return "", 0, ioError(file.key, err)
	}
	return fingerprint, size, nil
}
