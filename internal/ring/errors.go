package ring

import "fmt"

// InvariantError distinguishes invariant violations (bugs or operator errors,
// spec.md §7) from the ordinary not-found/full results the ring's
// operations return as plain booleans.
type InvariantError struct {
	Op      string
	Message string
	Cause   error
}

func (e *InvariantError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ring %s: %s: %v", e.Op, e.Message, e.Cause)
	}

	return fmt.Sprintf("ring %s: %s", e.Op, e.Message)
}

func (e *InvariantError) Unwrap() error { return e.Cause }

// Sentinel invariant-violation errors (spec.md §7).
var (
	ErrInvalidConfig = &InvariantError{Op: "new", Message: "invalid configuration"}
	ErrPlacementFull = &InvariantError{Op: "new", Message: "ring has no free slot to place every server"}
	ErrNoLiveServer  = &InvariantError{Op: "find_server", Message: "no live server exists on the ring"}
	ErrUnknownServer = &InvariantError{Op: "simulate", Message: "no server with that id exists on the ring"}
	ErrRingFull      = &InvariantError{Op: "insert", Message: "ring is full, no free slot found after a full sweep"}
)
