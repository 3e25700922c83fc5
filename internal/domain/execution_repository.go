package domain

import (
	"context"
	"time"
)

// ExecutionRepository defines the interface for persisting and retrieving
// execution records.
//
// Each execution id is written by exactly one logical writer sequence: one
// Create followed by one terminal Update. Implementations must make each
// write atomic so readers never observe a partially-updated record.
type ExecutionRepository interface {
	// Create persists a new execution record. It fails if a record with the
	// same id already exists.
	Create(ctx context.Context, exec *Execution) error
	// Update replaces an existing execution record. It fails with
	// ErrExecutionNotFound if the record was never created.
	Update(ctx context.Context, exec *Execution) error
	// Get retrieves a single execution record.
	Get(ctx context.Context, projectID, executionID string) (*Execution, error)
	// ListByProject retrieves all executions for a project started at or
	// after since, ordered oldest first.
	ListByProject(ctx context.Context, projectID string, since time.Time) ([]*Execution, error)
	// ListRunningBefore retrieves executions across all projects that are
	// still running and were started before cutoff.
	ListRunningBefore(ctx context.Context, cutoff time.Time) ([]*Execution, error)
}
