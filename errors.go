package kernel

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the kernel's non-fatal failure paths.
// InvariantViolation conditions are not in this list: those panic
// with *InvariantError instead, because they indicate a programming
// error in the client, not a recoverable runtime condition.
var (
	// ErrMappingRejected is returned by OutChannel.Mapto when the
	// requested mapping conflicts with an existing one at a different
	// delay, or would create a zero-delay cross-timeline link.
	ErrMappingRejected = errors.New("channel mapping rejected")
)

// InvariantError is panicked by the kernel when a caller violates a
// structural invariant (scheduling a process on a timeline other than
// its owner's). A zero-delay cross-timeline mapping is not one of
// these: Mapto reports it as ErrMappingRejected. These
// are programming errors in client code, not simulation-time failures,
// and are never recovered inside the kernel.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return e.Msg }

func invariantViolation(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}

func mappingRejected(reason string) error {
	return fmt.Errorf("%w: %s", ErrMappingRejected, reason)
}
