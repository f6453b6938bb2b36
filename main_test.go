package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photosphere/file-regress-go/lib"
)

// isolate keeps run logs and config discovery inside the test's temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func writeTree(t *testing.T, root string, files map[string]string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(root, 0755))
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func execute(t *testing.T, args ...string) (stdout, stderr string, code int, err error) {
	t.Helper()
	cmd := newRootCmd()
	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return outBuf.String(), errBuf.String(), exitCode(err), err
}

func TestCompare_identicalFolders(t *testing.T) {
	dir := isolate(t)
	files := map[string]string{"a.txt": "A", "sub/b.txt": "B"}
	base := writeTree(t, filepath.Join(dir, "base"), files)
	test := writeTree(t, filepath.Join(dir, "test"), files)

	stdout, _, code, err := execute(t, "compare", "--quiet", "--base_folder", base, "--test_folder", test)
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Found 2 unique files across both folders")
	assert.Contains(t, stdout, "All files are identical across both folders!")
}

func TestCompare_regressionsExitOne(t *testing.T) {
	dir := isolate(t)
	base := writeTree(t, filepath.Join(dir, "base"), map[string]string{"a.txt": "X", "b.txt": "X", "gone.txt": "G", "x.log": "1"})
	test := writeTree(t, filepath.Join(dir, "test"), map[string]string{"a.txt": "X", "b.txt": "Y", "new.txt": "N", "x.log": "2"})

	stdout, stderr, code, _ := execute(t, "compare", "--base_folder", base, "--test_folder", test, "--exclude", "*.log")
	assert.Equal(t, ExitRegression, code)
	assert.Contains(t, stdout, "Files missing in base folder (1):")
	assert.Contains(t, stdout, "  - new.txt")
	assert.Contains(t, stdout, "Files missing in test folder (1):")
	assert.Contains(t, stdout, "  - gone.txt")
	assert.Contains(t, stdout, "Files with different content (1):")
	assert.Contains(t, stdout, "  - b.txt")
	assert.Contains(t, stdout, "Found 3 issues in total")
	assert.NotContains(t, stdout, "x.log")
	assert.Contains(t, stderr, "Summary:")
	// x.log is excluded from both roots.
	assert.Contains(t, stderr, "Files excluded:         2")
}

func TestCompare_casesFormat(t *testing.T) {
	dir := isolate(t)
	base := writeTree(t, filepath.Join(dir, "base"), map[string]string{"a.txt": "X", "same.txt": "S"})
	test := writeTree(t, filepath.Join(dir, "test"), map[string]string{"same.txt": "S"})

	stdout, _, code, _ := execute(t, "compare", "--quiet", "--verbose", "--format", "cases", "--base_folder", base, "--test_folder", test)
	assert.Equal(t, ExitRegression, code)
	assert.Contains(t, stdout, "[FAIL] Missing file: a.txt")
	assert.Contains(t, stdout, "[PASS] same.txt")
}

func TestCompare_jsonFormatFromEnv(t *testing.T) {
	dir := isolate(t)
	base := writeTree(t, filepath.Join(dir, "base"), map[string]string{"a.txt": "X"})
	test := writeTree(t, filepath.Join(dir, "test"), map[string]string{"a.txt": "Y"})
	t.Setenv("FILEREGRESS_BASE_FOLDER", base)
	t.Setenv("FILEREGRESS_TEST_FOLDER", test)
	t.Setenv("FILEREGRESS_FORMAT", "json")

	stdout, _, code, _ := execute(t, "compare", "--quiet", "--hash", "sha256")
	assert.Equal(t, ExitRegression, code)
	var raw []map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "a.txt", raw[0]["path"])
	assert.Equal(t, "changed", raw[0]["classification"])
	assert.Len(t, raw[0]["base"], 64)
}

func TestCompare_configFile(t *testing.T) {
	dir := isolate(t)
	base := writeTree(t, filepath.Join(dir, "base"), map[string]string{"a.txt": "X", "skip.tmp": "1"})
	test := writeTree(t, filepath.Join(dir, "test"), map[string]string{"a.txt": "X"})
	configPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("base_folder: "+base+"\ntest_folder: "+test+"\nexclude: \"*.tmp\"\nquiet: true\n"), 0644))

	stdout, stderr, code, err := execute(t, "compare", "--config", configPath)
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "All files are identical")
	assert.Empty(t, stderr)
}

func TestCompare_usageErrors(t *testing.T) {
	dir := isolate(t)
	base := writeTree(t, filepath.Join(dir, "base"), map[string]string{"a": "1"})
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing folders", args: []string{"compare"}},
		{name: "bad format", args: []string{"compare", "--base_folder", base, "--test_folder", base, "--format", "xml"}},
		{name: "bad hash", args: []string{"compare", "--base_folder", base, "--test_folder", base, "--hash", "crc"}},
		{name: "bad exclude", args: []string{"compare", "--quiet", "--base_folder", base, "--test_folder", base, "--exclude", "["}},
		{name: "unknown flag", args: []string{"compare", "--nope"}},
		{name: "positional args", args: []string{"compare", "extra"}},
		{name: "missing config file", args: []string{"compare", "--config", filepath.Join(dir, "absent.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, code, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitUsage, code)
		})
	}
}

func TestCompare_missingRootIsFatal(t *testing.T) {
	dir := isolate(t)
	base := writeTree(t, filepath.Join(dir, "base"), map[string]string{"a": "1"})
	_, _, code, err := execute(t, "compare", "--quiet", "--base_folder", base, "--test_folder", filepath.Join(dir, "missing"))
	assert.Equal(t, ExitFatal, code)
	assert.ErrorIs(t, err, lib.ErrRootNotFound)
	assert.Contains(t, err.Error(), "test folder")
}

func TestInventory_textAndFormats(t *testing.T) {
	dir := isolate(t)
	root := writeTree(t, filepath.Join(dir, "root"), map[string]string{"a.txt": "hello", "b.log": "x", "sub/c.txt": "hello"})

	stdout, _, code, err := execute(t, "inventory", "--quiet", "--exclude", "*.log", root)
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t,
		"5d41402abc4b2a76b9719d911017c592  a.txt\n5d41402abc4b2a76b9719d911017c592  sub/c.txt\n",
		stdout)

	stdout, _, _, err = execute(t, "inventory", "--quiet", "--format", "yaml", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "b.log:")

	_, _, code, _ = execute(t, "inventory", "--quiet", "--format", "table", root)
	assert.Equal(t, ExitUsage, code)

	_, _, code, _ = execute(t, "inventory", "--quiet")
	assert.Equal(t, ExitUsage, code)
}

func TestIdentical(t *testing.T) {
	dir := isolate(t)
	writeTree(t, dir, map[string]string{"a": "same", "b": "same", "c": "other"})

	stdout, _, code, err := execute(t, "identical", "--quiet", filepath.Join(dir, "a"), filepath.Join(dir, "b"))
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "identical\n", stdout)

	stdout, _, code, _ = execute(t, "identical", "--quiet", filepath.Join(dir, "a"), filepath.Join(dir, "c"))
	assert.Equal(t, ExitRegression, code)
	assert.Equal(t, "different\n", stdout)

	_, _, code, err = execute(t, "identical", "--quiet", filepath.Join(dir, "a"), filepath.Join(dir, "missing"))
	assert.Equal(t, ExitFatal, code)
	var ioErr *lib.IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestGenerateThenCompare(t *testing.T) {
	dir := isolate(t)
	base := filepath.Join(dir, "gen-base")
	test := filepath.Join(dir, "gen-test")

	stdout, _, code, err := execute(t, "generate", "--quiet", "--base_folder", base, "--test_folder", test,
		"--num_files", "10", "--max_depth", "1", "--modify_percent", "0", "--missing_percent", "0", "--seed", "5")
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Base files: 10")
	assert.Contains(t, stdout, "Files left out of test folder: 0")

	stdout, _, code, _ = execute(t, "compare", "--quiet", "--format", "cases", "--base_folder", base, "--test_folder", test)
	assert.Equal(t, ExitRegression, code)
	assert.Contains(t, stdout, "[FAIL] Extra file: ")
	assert.NotContains(t, stdout, "Missing file")
	assert.NotContains(t, stdout, "Content changed")

	_, _, code, _ = execute(t, "generate", "--quiet", "--base_folder", base, "--test_folder", test, "--modify_percent", "101")
	assert.Equal(t, ExitUsage, code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitUsage, exitCode(errors.New("cobra arg error")))
	assert.Equal(t, ExitRegression, exitCode(&exitError{code: ExitRegression}))
	assert.Equal(t, ExitFatal, exitCode(fatalError(errors.New("io"))))
	assert.Equal(t, "exit status 1", (&exitError{code: 1}).Error())
}

func TestProgressLine(t *testing.T) {
	assert.Empty(t, progressLine(lib.ProgressSnapshot{}, 4, 0))

	line := progressLine(lib.ProgressSnapshot{
		Discovered:  2500,
		Excluded:    500,
		Hashed:      1000,
		BytesHashed: 3 * 1000 * 1000,
		Elapsed:     10 * time.Second,
	}, 4, 75)
	assert.True(t, strings.HasPrefix(line, "hashing: 1,000 of 2,000 files, 3.0 MB (4 workers, 75% busy)"), line)
	assert.Contains(t, line, "~10s remaining")
}

func TestAveragePerFile(t *testing.T) {
	assert.Zero(t, averagePerFile(lib.ProgressSnapshot{}))
	assert.Equal(t, time.Second, averagePerFile(lib.ProgressSnapshot{Hashed: 4, Elapsed: 4 * time.Second}))
}
