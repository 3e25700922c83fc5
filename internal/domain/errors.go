package domain

import (
	"errors"
	"fmt"
)

// ErrScriptNotFound is a sentinel error returned when a script is not found.
var ErrScriptNotFound = errors.New("script not found")

// ErrExecutionNotFound is a sentinel error returned when an execution record
// is not found.
var ErrExecutionNotFound = errors.New("execution not found")

// ErrExecutionCompleted is returned when a terminal transition is attempted
// on an execution that already reached a terminal state.
var ErrExecutionCompleted = errors.New("execution already completed")

// ValidationError marks missing or malformed required input. It is surfaced
// immediately and leaves no partial state behind.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError anywhere in its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RunnerFault marks a script that could not be executed at all, as opposed to
// a script that executed and failed its assertions. Callers recover a
// RunnerFault into a terminal fail record so the lifecycle is never left
// running indefinitely.
type RunnerFault struct {
	Reason string
	Err    error
}

func (e *RunnerFault) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("runner fault: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("runner fault: %s", e.Reason)
}

func (e *RunnerFault) Unwrap() error { return e.Err }

// IsRunnerFault reports whether err is a RunnerFault anywhere in its chain.
func IsRunnerFault(err error) bool {
	var rf *RunnerFault
	return errors.As(err, &rf)
}

// PersistenceError marks a failure to durably create, update or read a
// record in the execution store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is a PersistenceError anywhere in its chain.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// AggregationError marks a malformed metrics request (bad window or project
// id). It is surfaced to the caller as a validation failure.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation request invalid: %s", e.Reason)
}

// IsAggregation reports whether err is an AggregationError anywhere in its chain.
func IsAggregation(err error) bool {
	var ae *AggregationError
	return errors.As(err, &ae)
}
