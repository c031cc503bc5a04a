package graph

import "fmt"

// ErrGraphUnavailable indicates a transient failure talking to the
// external graph: network error, non-success response, or a payload the
// adapter could not parse. Always recoverable, never fatal to the process.
type ErrGraphUnavailable struct {
	Op    string
	Cause error
}

func (e *ErrGraphUnavailable) Error() string {
	return fmt.Sprintf("graph unavailable during %s: %v", e.Op, e.Cause)
}

func (e *ErrGraphUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the graph has no entity for the requested id.
// Distinct from ErrGraphUnavailable: an empty roster is a valid outcome.
type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("graph entity %s not found", e.ID)
}
