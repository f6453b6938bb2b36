package lib

import (
	"errors"
	"fmt"
)

// ErrRootNotFound is matched by errors.Is for any *RootNotFoundError.
var ErrRootNotFound = errors.New("root not found")

// ErrBadPattern is wrapped when an exclusion pattern cannot be compiled.
var ErrBadPattern = errors.New("bad exclusion pattern")

// RootNotFoundError reports that a root does not exist or cannot be enumerated.
type RootNotFoundError struct {
	Root string
	Err  error
}

func (e *RootNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("root not found: %s", e.Root)
	}
	return fmt.Sprintf("root not found: %s: %v", e.Root, e.Err)
}

func (e *RootNotFoundError) Unwrap() error { return e.Err }

func (e *RootNotFoundError) Is(target error) bool { return target == ErrRootNotFound }

// IOError reports a failed read of one file. Path is the relative path when the
// failure happened inside a root, or the path the caller passed otherwise.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func ioError(path string, err error) error {
	var existing *IOError
	if errors.As(err, &existing) {
		return err
	}
	return &IOError{Path: path, Err: err}
}
