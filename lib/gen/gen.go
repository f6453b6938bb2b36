// Package gen writes a pair of directory trees with controlled differences:
// files omitted from the test tree, files with one mutated byte, and extra
// files that exist only in the test tree. It exists to exercise the
// inventory and diff engine end to end.
package gen

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
)

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	letters      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercase    = "abcdefghijklmnopqrstuvwxyz"
)

// Options controls Generate. Percentages are 0–100.
type Options struct {
	BaseFolder     string
	TestFolder     string
	NumFiles       int
	MaxDepth       int
	ModifyPercent  int
	MissingPercent int
	// Seed makes output reproducible; 0 picks a random seed.
	Seed uint64
}

// DefaultOptions mirrors the generate command's flag defaults.
func DefaultOptions() Options {
	return Options{
		BaseFolder:     "./base_data",
		TestFolder:     "./test_data",
		NumFiles:       20,
		MaxDepth:       2,
		ModifyPercent:  20,
		MissingPercent: 10,
	}
}

// Summary reports what Generate wrote. Paths are relative and slash-separated.
type Summary struct {
	Created  int
	Extra    []string
	Omitted  []string
	Modified []string
	Seed     uint64
}

// Generator holds the random source so helpers can be driven deterministically.
type Generator struct {
	rng *rand.Rand
}

// New returns a Generator seeded with seed (0 picks a random seed).
func New(seed uint64) (*Generator, uint64) {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}, seed
}

// chance returns true with probability percent/100.
func (g *Generator) chance(percent int) bool {
	return g.rng.IntN(100)+1 <= percent
}

func (g *Generator) pick(alphabet string) byte {
	return alphabet[g.rng.IntN(len(alphabet))]
}

// CreateRandomFile writes sizeKB KiB of random alphanumeric text to path,
// creating parent directories.
func (g *Generator) CreateRandomFile(path string, sizeKB int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	content := make([]byte, sizeKB*1024)
	for i := range content {
		content[i] = g.pick(alphanumeric)
	}
	return os.WriteFile(path, content, 0o644)
}

// CopyWithModifications copies source to dest and, with probability
// modifyPercent, replaces one byte with a different letter. It reports whether
// the copy was modified.
func (g *Generator) CopyWithModifications(source, dest string, modifyPercent int) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, err
	}
	content, err := os.ReadFile(source)
	if err != nil {
		return false, err
	}
	modified := false
	if len(content) > 0 && g.chance(modifyPercent) {
		pos := g.rng.IntN(len(content))
		replacement := g.pick(letters)
		for replacement == content[pos] {
			replacement = g.pick(letters)
		}
		content[pos] = replacement
		modified = true
	}
	return modified, os.WriteFile(dest, content, 0o644)
}

func (g *Generator) randomSubfolder(maxDepth int) string {
	depth := 0
	if maxDepth > 0 {
		depth = g.rng.IntN(maxDepth + 1)
	}
	parts := make([]string, depth)
	for i := range parts {
		parts[i] = string(g.pick(lowercase))
	}
	return filepath.Join(parts...)
}

// Generate populates opts.BaseFolder and opts.TestFolder.
func Generate(opts Options) (Summary, error) {
	if opts.NumFiles < 0 || opts.MaxDepth < 0 {
		return Summary{}, fmt.Errorf("num_files and max_depth must not be negative")
	}
	g, seed := New(opts.Seed)
	summary := Summary{Seed: seed}
	for _, dir := range []string{opts.BaseFolder, opts.TestFolder} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return summary, err
		}
	}

	for i := 0; i < opts.NumFiles; i++ {
		rel := filepath.Join(g.randomSubfolder(opts.MaxDepth), fmt.Sprintf("file_%d_%d.txt", i, 1000+g.rng.IntN(9000)))
		basePath := filepath.Join(opts.BaseFolder, rel)
		if err := g.CreateRandomFile(basePath, 1+g.rng.IntN(5)); err != nil {
			return summary, err
		}
		summary.Created++
		if g.chance(opts.MissingPercent) {
			summary.Omitted = append(summary.Omitted, filepath.ToSlash(rel))
			continue
		}
		modified, err := g.CopyWithModifications(basePath, filepath.Join(opts.TestFolder, rel), opts.ModifyPercent)
		if err != nil {
			return summary, err
		}
		if modified {
			summary.Modified = append(summary.Modified, filepath.ToSlash(rel))
		}
	}

	extraFiles := 1 + g.rng.IntN(max(1, opts.NumFiles/5))
	for i := 0; i < extraFiles; i++ {
		rel := filepath.Join(g.randomSubfolder(opts.MaxDepth), fmt.Sprintf("extra_file_%d_%d.txt", i, 1000+g.rng.IntN(9000)))
		if err := g.CreateRandomFile(filepath.Join(opts.TestFolder, rel), 1+g.rng.IntN(5)); err != nil {
			return summary, err
		}
		summary.Extra = append(summary.Extra, filepath.ToSlash(rel))
	}
	return summary, nil
}
