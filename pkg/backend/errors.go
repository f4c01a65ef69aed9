package backend

import (
	"errors"
	"fmt"
)

// ErrUseAfterClose is returned when an operation is attempted on a session
// handle after its teardown.
var ErrUseAfterClose = errors.New("session handle used after close")

// UnsupportedError is returned when a requested browser or platform variant
// is not recognized. The invalid value is never silently substituted with a
// default.
type UnsupportedError struct {
	Kind  Kind
	Value string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported %s backend variant: %q", e.Kind, e.Value)
}

// ConstructionError wraps a failure from the underlying automation engine
// during session construction.
type ConstructionError struct {
	Kind    Kind
	Variant string
	Err     error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("failed to construct %s session (%s): %v", e.Kind, e.Variant, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}
