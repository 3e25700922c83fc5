// internal/domain/execution.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus defines the lifecycle state of a script execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusPass    ExecutionStatus = "pass"
	ExecutionStatusFail    ExecutionStatus = "fail"
)

// Terminal reports whether the status is a final outcome.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusPass || s == ExecutionStatusFail
}

// Execution represents a single recorded attempt to run a test script.
//
// An execution is created exactly once in the running state and transitions
// to exactly one terminal state exactly once. The terminal fields
// (CompletedAt, DurationMS, Output, ExitCode) are populated together by
// Complete and are never set individually.
type Execution struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	ScriptID    string          `json:"script_id"`
	ScriptName  string          `json:"script_name"`
	UserID      string          `json:"user_id,omitempty"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	DurationMS  *int64          `json:"duration_ms,omitempty"`
	Output      string          `json:"output,omitempty"`
	ExitCode    *int            `json:"exit_code,omitempty"`
}

// NewExecution constructs a pending execution record.
// The record starts in the running state with no terminal fields set.
func NewExecution(projectID, scriptID, scriptName, userID string) (*Execution, error) {
	if projectID == "" {
		return nil, &ValidationError{Field: "project_id", Reason: "cannot be empty"}
	}
	if scriptID == "" {
		return nil, &ValidationError{Field: "script_id", Reason: "cannot be empty"}
	}
	if scriptName == "" {
		return nil, &ValidationError{Field: "script_name", Reason: "cannot be empty"}
	}
	return &Execution{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		ScriptID:   scriptID,
		ScriptName: scriptName,
		UserID:     userID,
		Status:     ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
	}, nil
}

// Complete applies the single terminal transition running -> pass|fail.
// All terminal fields are set together so a reader never observes a
// partially-updated record.
func (e *Execution) Complete(status ExecutionStatus, output string, durationMS int64, exitCode int) error {
	if e.Status.Terminal() {
		return ErrExecutionCompleted
	}
	if !status.Terminal() {
		return &ValidationError{Field: "status", Reason: "terminal status must be pass or fail"}
	}
	if durationMS < 0 {
		return &ValidationError{Field: "duration_ms", Reason: "cannot be negative"}
	}
	now := time.Now().UTC()
	if now.Before(e.StartedAt) {
		now = e.StartedAt
	}
	e.Status = status
	e.CompletedAt = &now
	e.DurationMS = &durationMS
	e.Output = output
	e.ExitCode = &exitCode
	return nil
}

// Terminal reports whether the execution has reached a final outcome.
func (e *Execution) Terminal() bool {
	return e.Status.Terminal()
}

// Validate checks structural consistency of the record, including the
// all-or-nothing terminal field population rule.
func (e *Execution) Validate() error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Reason: "cannot be empty"}
	}
	if e.ProjectID == "" {
		return &ValidationError{Field: "project_id", Reason: "cannot be empty"}
	}
	if e.ScriptID == "" {
		return &ValidationError{Field: "script_id", Reason: "cannot be empty"}
	}
	if e.StartedAt.IsZero() {
		return &ValidationError{Field: "started_at", Reason: "cannot be zero"}
	}
	switch e.Status {
	case ExecutionStatusRunning:
		if e.CompletedAt != nil || e.DurationMS != nil || e.ExitCode != nil {
			return &ValidationError{Field: "status", Reason: "running execution carries terminal fields"}
		}
	case ExecutionStatusPass, ExecutionStatusFail:
		if e.CompletedAt == nil || e.DurationMS == nil || e.ExitCode == nil {
			return &ValidationError{Field: "status", Reason: "terminal execution is missing terminal fields"}
		}
		if e.CompletedAt.Before(e.StartedAt) {
			return &ValidationError{Field: "completed_at", Reason: "precedes started_at"}
		}
	default:
		return &ValidationError{Field: "status", Reason: "unknown status"}
	}
	return nil
}
