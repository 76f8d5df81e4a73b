package lib

import (
	"errors"
	"fmt"
)

// ErrNotInList is wrapped by InvariantError when a work list operation
// references a path the list does not hold.
var ErrNotInList = errors.New("file not found in the work list")

// InvariantError reports a broken programming contract, as opposed to a
// per-item failure caused by the media itself.
type InvariantError struct {
	Op   string
	Path string
	Err  error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s for %q: %v", e.Op, e.Path, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }

// IsInvariant reports whether err is (or wraps) an InvariantError.
func IsInvariant(err error) bool {
	var e *InvariantError
	return errors.As(err, &e)
}

// ConfigError is a fatal configuration problem detected before a batch starts.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
