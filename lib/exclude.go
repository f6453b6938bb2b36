package lib

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// RegexPrefix marks an exclusion pattern as a Go regular expression matched
// (unanchored) against relative file paths instead of a glob.
const RegexPrefix = "re:"

// exclusionSet is the resolved match set of one exclusion pattern. A matched
// directory excludes everything beneath it.
type exclusionSet map[string]struct{}

// resolveExclusions enumerates the paths pattern selects under store. Glob
// patterns go through the storage's own glob primitive; regex patterns are
// evaluated over files, the walk result the caller already holds.
func resolveExclusions(ctx context.Context, store Storage, pattern string, files []string) (exclusionSet, error) {
	matched := make(exclusionSet)
	if pattern == "" {
		return matched, nil
	}
	if strings.HasPrefix(pattern, RegexPrefix) {
		expr, err := regexp.Compile(strings.TrimPrefix(pattern, RegexPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPattern, err)
		}
		for _, rel := range files {
			if expr.MatchString(rel) {
				matched[rel] = struct{}{}
			}
		}
		return matched, nil
	}
	pattern, err := cleanGlob(pattern)
	if err != nil {
		return nil, err
	}
	paths, err := store.Glob(ctx, pattern)
	if err != nil {
		return nil, err
	}
	for _, rel := range paths {
		if rel == "" {
			// Pattern resolved to the root itself.
			matched[""] = struct{}{}
			continue
		}
		matched[NormalizeRel(rel)] = struct{}{}
	}
	return matched, nil
}

// cleanGlob puts a glob in the root-relative form every backend matches
// against. Absolute patterns can never match a relative path and are rejected.
func cleanGlob(pattern string) (string, error) {
	pattern = filepath.ToSlash(pattern)
	for strings.HasPrefix(pattern, "./") {
		pattern = strings.TrimLeft(strings.TrimPrefix(pattern, "./"), "/")
	}
	if strings.HasPrefix(pattern, "/") {
		return "", fmt.Errorf("%w: %q is absolute; patterns are relative to the root", ErrBadPattern, pattern)
	}
	if pattern == "" || pattern == "." {
		return "", fmt.Errorf("%w: empty glob", ErrBadPattern)
	}
	return pattern, nil
}

func (set exclusionSet) excludes(rel string) bool {
	if len(set) == 0 {
		return false
	}
	if _, ok := set[""]; ok {
		return true
	}
	if _, ok := set[rel]; ok {
		return true
	}
	for idx := strings.LastIndex(rel, "/"); idx > 0; idx = strings.LastIndex(rel[:idx], "/") {
		if _, ok := set[rel[:idx]]; ok {
			return true
		}
	}
	return false
}
