// Package regress turns a base/test folder comparison into go test cases:
// one subtest per relative path, failing when the file is missing, extra, or
// changed in the test folder.
//
// Typical use from a _test.go file:
//
//	func init() { regress.RegisterFlags(flag.CommandLine) }
//
//	func TestOutputs(t *testing.T) {
//		opts, err := regress.OptionsFromFlags()
//		require.NoError(t, err)
//		regress.Run(t, opts)
//	}
//
// and then: go test -run TestOutputs -args -base_folder=want -test_folder=got
package regress

import (
	"context"
	"flag"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photosphere/file-regress-go/lib"
	"github.com/photosphere/file-regress-go/lib/roots"
)

// Options selects the two roots and how they are inventoried.
type Options struct {
	BaseFolder string
	TestFolder string
	Exclude    string
	// Config supplies hashing and S3 settings; nil uses lib.DefaultConfig.
	Config *lib.Config
}

// Case is one relative path from the union of both inventories.
type Case struct {
	Path  string
	Class lib.Classification
	entry lib.DiffEntry
}

// RegressionError is returned by Case.Check for any path that is not unchanged.
type RegressionError struct {
	Entry lib.DiffEntry
}

func (e *RegressionError) Error() string {
	return lib.FailureMessage(e.Entry)
}

// Check returns nil when the path is unchanged, otherwise a *RegressionError
// naming the classification.
func (c Case) Check() error {
	if !c.Class.Regressed() {
		return nil
	}
	return &RegressionError{Entry: c.entry}
}

// Cases inventories both roots and returns one Case per path, sorted.
func Cases(ctx context.Context, opts Options) ([]Case, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = lib.DefaultConfig()
	}
	base, err := roots.Open(ctx, opts.BaseFolder, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("base folder: %w", err)
	}
	test, err := roots.Open(ctx, opts.TestFolder, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("test folder: %w", err)
	}
	inventoryOpts := cfg.InventoryOptions()
	inventoryOpts.Exclude = opts.Exclude
	result, err := lib.CompareRoots(ctx, base, test, inventoryOpts)
	if err != nil {
		return nil, err
	}
	cases := make([]Case, 0, len(result.Entries))
	for _, entry := range result.Entries {
		cases = append(cases, Case{Path: entry.Path, Class: entry.Class, entry: entry})
	}
	return cases, nil
}

// Run runs one subtest per Case. It skips t when either folder is unset and
// fails t outright when the roots cannot be inventoried.
func Run(t *testing.T, opts Options) {
	t.Helper()
	if opts.BaseFolder == "" || opts.TestFolder == "" {
		t.Skip("base_folder and test_folder not set")
	}
	cases, err := Cases(context.Background(), opts)
	require.NoError(t, err)
	if len(cases) == 0 {
		t.Logf("no files under %s or %s", opts.BaseFolder, opts.TestFolder)
	}
	for _, c := range cases {
		t.Run(c.Path, func(t *testing.T) {
			if err := c.Check(); err != nil {
				t.Error(err)
			}
		})
	}
}

var (
	baseFolderFlag string
	testFolderFlag string
	excludeFlag    string
)

// RegisterFlags adds -base_folder, -test_folder and -exclude to fs, normally
// flag.CommandLine so go test -args can set them.
func RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&baseFolderFlag, "base_folder", "", "Base (expected) folder for regression cases")
	fs.StringVar(&testFolderFlag, "test_folder", "", "Test (actual) folder for regression cases")
	fs.StringVar(&excludeFlag, "exclude", "", "Exclusion pattern: glob, or re:<regexp>")
}

// OptionsFromFlags resolves Options from FILEREGRESS_* environment variables
// and config file first, then the registered flags where set.
func OptionsFromFlags() (Options, error) {
	cfg, err := lib.NewLoader().Load()
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		BaseFolder: cfg.BaseFolder,
		TestFolder: cfg.TestFolder,
		Exclude:    cfg.Exclude,
		Config:     cfg,
	}
	if baseFolderFlag != "" {
		opts.BaseFolder = baseFolderFlag
	}
	if testFolderFlag != "" {
		opts.TestFolder = testFolderFlag
	}
	if excludeFlag != "" {
		opts.Exclude = excludeFlag
	}
	return opts, nil
}
