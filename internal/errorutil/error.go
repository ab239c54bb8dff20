// Package errorutil provides helpers to build the sentinel errors used
// across the domain packages.
package errorutil

import (
	"errors"
	"fmt"
)

func New(msg string) error {
	return errors.New(msg)
}

// Format wraps a sentinel error with extra context. The first verb is
// expected to be %w so errors.Is keeps matching the sentinel.
func Format(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
