package engine

import "fmt"

// InvalidScopeError reports a malformed scope or a cross-project branch comparison.
type InvalidScopeError struct {
	Reason string
}

func (e *InvalidScopeError) Error() string {
	return "invalid scope: " + e.Reason
}

// StoreUnavailableError wraps a graph store failure. It is fatal for the
// whole call; the engine never retries internally.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("graph store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// MalformedEntityError reports an entity or candidate missing required
// identity fields. It fails the entire batch it arrived in, carrying the
// offending identity key so the caller can fix and resubmit.
type MalformedEntityError struct {
	Kind   string
	Name   string
	Reason string
}

func (e *MalformedEntityError) Error() string {
	return fmt.Sprintf("malformed entity (%s %q): %s", e.Kind, e.Name, e.Reason)
}

// UnknownAnalysisTypeError reports an analysis type outside the supported set.
type UnknownAnalysisTypeError struct {
	Type string
}

func (e *UnknownAnalysisTypeError) Error() string {
	return fmt.Sprintf("unknown analysis type: %q", e.Type)
}

// DepthOutOfRangeError reports a traversal depth outside the allowed 1..5 range.
type DepthOutOfRangeError struct {
	Depth int
}

func (e *DepthOutOfRangeError) Error() string {
	return fmt.Sprintf("max depth %d out of range [%d, %d]", e.Depth, MinDepth, MaxDepth)
}

func storeErr(op string, err error) error {
	return &StoreUnavailableError{Op: op, Err: err}
}
