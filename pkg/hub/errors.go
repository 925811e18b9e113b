package hub

import (
	"fmt"

	"github.com/glorpus-work/modelfetch/pkg/errors"
)

// Common hub errors.
var (
	// ErrInvalidSourceFormat is returned when a source reference cannot be parsed.
	ErrInvalidSourceFormat = fmt.Errorf("invalid source format")

	// ErrResolutionFailed is returned when no candidate file or URL could be found.
	ErrResolutionFailed = fmt.Errorf("resolution failed")
)

// Wrap wraps an error with additional context specific to the hub package.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, "hub: "+msg)
}

// Wrapf wraps an error with additional formatted context specific to the hub package.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, "hub: "+format, args...)
}
