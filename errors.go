package hypatia

import (
	"errors"
	"fmt"
)

// Sentinel errors for common pipeline error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrMalformedGraph indicates a graph document failed structural
	// validation at load time (missing required fields or dangling edges).
	ErrMalformedGraph = errors.New("malformed graph")

	// ErrNodeNotFound indicates a requested node id does not exist in the
	// loaded graph index.
	ErrNodeNotFound = errors.New("node not found")

	// ErrRunNotFound indicates the requested run id is unknown to the store.
	ErrRunNotFound = errors.New("run not found")

	// ErrDuplicateCheckpoint indicates an unresolved checkpoint already
	// exists for a (run, stage) pair.
	ErrDuplicateCheckpoint = errors.New("checkpoint already pending")

	// ErrCheckpointNotFound indicates no pending checkpoint exists for the
	// (run, stage) pair being resolved.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrExternalCallTimeout indicates an external LLM or similarity call
	// exceeded its per-call timeout.
	ErrExternalCallTimeout = errors.New("external call timed out")

	// ErrExternalCallFailure indicates an external collaborator returned an
	// error that survived the bounded retry policy.
	ErrExternalCallFailure = errors.New("external call failed")

	// ErrCacheCorruption indicates the persisted cache tier returned data
	// that could not be decoded. Treated as a miss, never fatal.
	ErrCacheCorruption = errors.New("persisted cache entry corrupt")

	// ErrInvalidConfig indicates the provided configuration is invalid or
	// incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Error kinds categorize errors by their type.
const (
	// KindNotFound represents errors where a resource was not found.
	KindNotFound = "not_found"

	// KindValidation represents errors related to input or document validation.
	KindValidation = "validation"

	// KindExecution represents errors that occur while driving a run.
	KindExecution = "execution"

	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindTimeout represents errors related to operation timeouts.
	KindTimeout = "timeout"

	// KindContract represents programming or contract violations, such as
	// resolving a checkpoint that was never created. Never retried.
	KindContract = "contract"

	// KindInternal represents internal errors.
	KindInternal = "internal"
)

// Error is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category
// of error.
//
// Error implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
type Error struct {
	// Op is the operation that failed (e.g., "graph.Load", "Runner.Start").
	Op string

	// Kind categorizes the error (e.g., KindNotFound, KindValidation).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	Context map[string]any
}

// Error implements the error interface, returning a formatted message that
// includes the operation, kind, and underlying error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("hypatia: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("hypatia: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("hypatia: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for Error, allowing comparison based on the
// underlying error or on a matching Op/Kind pair.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a copy of the error with the provided context merged in.
func (e *Error) WithContext(ctx map[string]any) *Error {
	newErr := *e
	if newErr.Context == nil {
		newErr.Context = make(map[string]any)
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// NewNotFoundError creates a new Error with KindNotFound.
func NewNotFoundError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindNotFound, Err: err}
}

// NewValidationError creates a new Error with KindValidation.
func NewValidationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindValidation, Err: err}
}

// NewExecutionError creates a new Error with KindExecution.
func NewExecutionError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindExecution, Err: err}
}

// NewConfigurationError creates a new Error with KindConfiguration.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}

// NewTimeoutError creates a new Error with KindTimeout.
func NewTimeoutError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindTimeout, Err: err}
}

// NewContractError creates a new Error with KindContract.
func NewContractError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindContract, Err: err}
}

// NewInternalError creates a new Error with KindInternal.
func NewInternalError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindInternal, Err: err}
}
