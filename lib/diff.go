package lib

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Classification is the outcome for one relative path across two inventories.
type Classification int

const (
	Unchanged Classification = iota
	Changed
	MissingInTest
	ExtraInTest
)

var classificationNames = map[Classification]string{
	Unchanged:     "unchanged",
	Changed:       "changed",
	MissingInTest: "missing-in-test",
	ExtraInTest:   "extra-in-test",
}

func (c Classification) String() string {
	if name, ok := classificationNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Classification(%d)", int(c))
}

// MarshalText lets JSON and YAML encoders print the name.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Regressed reports whether a path with this classification fails the run.
func (c Classification) Regressed() bool { return c != Unchanged }

// AllPaths returns the sorted union of both inventories' keys.
func AllPaths(base, test Inventory) []string {
	seen := make(map[string]struct{}, len(base)+len(test))
	for rel := range base {
		seen[rel] = struct{}{}
	}
	for rel := range test {
		seen[rel] = struct{}{}
	}
	paths := make([]string, 0, len(seen))
	for rel := range seen {
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	return paths
}

// Classify places rel into exactly one Classification. A path present in
// neither inventory is reported as MissingInTest with ok false.
func Classify(base, test Inventory, rel string) (Classification, bool) {
	baseFingerprint, inBase := base[rel]
	testFingerprint, inTest := test[rel]
	switch {
	case inBase && inTest && baseFingerprint == testFingerprint:
		return Unchanged, true
	case inBase && inTest:
		return Changed, true
	case inBase:
		return MissingInTest, true
	case inTest:
		return ExtraInTest, true
	default:
		return MissingInTest, false
	}
}

// DiffEntry is one classified path. Fingerprints are empty on the side where
// the path is absent.
type DiffEntry struct {
	Path            string         `json:"path" yaml:"path"`
	Class           Classification `json:"classification" yaml:"classification"`
	BaseFingerprint Fingerprint    `json:"base,omitempty" yaml:"base,omitempty"`
	TestFingerprint Fingerprint    `json:"test,omitempty" yaml:"test,omitempty"`
}

// DiffResult holds one entry per path in AllPaths, sorted by path.
type DiffResult struct {
	Entries   []DiffEntry
	BaseCount int
	TestCount int
}

// Diff classifies every path in the union of base and test.
func Diff(base, test Inventory) DiffResult {
	paths := AllPaths(base, test)
	result := DiffResult{
		Entries:   make([]DiffEntry, 0, len(paths)),
		BaseCount: len(base),
		TestCount: len(test),
	}
	for _, rel := range paths {
		class, _ := Classify(base, test, rel)
		result.Entries = append(result.Entries, DiffEntry{
			Path:            rel,
			Class:           class,
			BaseFingerprint: base[rel],
			TestFingerprint: test[rel],
		})
	}
	return result
}

// Regressed returns the entries that are not Unchanged, in path order.
func (r DiffResult) Regressed() []DiffEntry {
	var out []DiffEntry
	for _, entry := range r.Entries {
		if entry.Class.Regressed() {
			out = append(out, entry)
		}
	}
	return out
}

// Paths returns the paths with the given classification, in path order.
func (r DiffResult) Paths(class Classification) []string {
	var out []string
	for _, entry := range r.Entries {
		if entry.Class == class {
			out = append(out, entry.Path)
		}
	}
	return out
}

// Counts tallies entries per classification.
func (r DiffResult) Counts() map[Classification]int {
	counts := make(map[Classification]int, len(classificationNames))
	for _, entry := range r.Entries {
		counts[entry.Class]++
	}
	return counts
}

// Identical reports whether every path is Unchanged.
func (r DiffResult) Identical() bool {
	return len(r.Regressed()) == 0
}

// CompareRoots builds the base and test inventories with the same options and
// diffs them. The two builds run concurrently; either failing fails the call.
func CompareRoots(ctx context.Context, base, test Storage, opts InventoryOptions) (DiffResult, error) {
	var baseInv, testInv Inventory
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		inv, err := BuildInventory(groupCtx, base, opts)
		if err != nil {
			return fmt.Errorf("base folder: %w", err)
		}
		baseInv = inv
		return nil
	})
	group.Go(func() error {
		inv, err := BuildInventory(groupCtx, test, opts)
		if err != nil {
			return fmt.Errorf("test folder: %w", err)
		}
		testInv = inv
		return nil
	})
	if err := group.Wait(); err != nil {
		return DiffResult{}, err
	}
	return Diff(baseInv, testInv), nil
}

// FilesIdentical fingerprints two local files independently and compares the
// digests. An unreadable path fails with *IOError.
func FilesIdentical(ctx context.Context, pathA, pathB string, opts InventoryOptions) (bool, error) {
	opts = opts.withDefaults()
	fingerprintA, err := HashFile(ctx, pathA, opts.Algorithm, opts.ChunkSize)
	if err != nil {
		return false, err
	}
	fingerprintB, err := HashFile(ctx, pathB, opts.Algorithm, opts.ChunkSize)
	if err != nil {
		return false, err
	}
	return fingerprintA == fingerprintB, nil
}
