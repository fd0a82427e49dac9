package viewer

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on closed viewer.
	ErrClosed = errors.New("viewer is closed")
	// ErrDetached is returned by Frame.Wait when frame was replaced or
	// cleared before its layout completed.
	ErrDetached = errors.New("frame detached")
)

// LoadError reports failure to fetch or mount document markup.
type LoadError struct {
	Index int
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("unable to load document %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
