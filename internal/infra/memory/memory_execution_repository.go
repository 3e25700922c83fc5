// internal/infra/memory/memory_execution_repository.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"uitest-hub/internal/domain"
)

// Compile-time check that ExecutionRepository satisfies the domain port.
var _ domain.ExecutionRepository = (*ExecutionRepository)(nil)

// ExecutionRepository is an in-memory implementation of
// domain.ExecutionRepository. It backs standalone mode (no etcd endpoints
// configured) and the test suite.
type ExecutionRepository struct {
	mu    sync.RWMutex
	execs map[string]*domain.Execution // keyed by execution id
	order []string                     // insertion order, for stable listings
}

// NewExecutionRepository creates an empty in-memory execution store.
func NewExecutionRepository() *ExecutionRepository {
	return &ExecutionRepository{
		execs: make(map[string]*domain.Execution),
	}
}

// Create adds a new execution record. Execution ids are unique; a duplicate
// create is rejected rather than overwritten.
func (r *ExecutionRepository) Create(_ context.Context, exec *domain.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.execs[exec.ID]; exists {
		return &domain.PersistenceError{Op: "create", Err: fmt.Errorf("execution %s already exists", exec.ID)}
	}

	copied := *exec
	r.execs[exec.ID] = &copied
	r.order = append(r.order, exec.ID)
	return nil
}

// Update replaces an existing execution record in one step.
func (r *ExecutionRepository) Update(_ context.Context, exec *domain.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.execs[exec.ID]; !ok {
		return domain.ErrExecutionNotFound
	}

	copied := *exec
	r.execs[exec.ID] = &copied
	return nil
}

// Get retrieves an execution by id. A copy is returned so callers cannot
// mutate stored state behind the repository's back.
func (r *ExecutionRepository) Get(_ context.Context, projectID, executionID string) (*domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, ok := r.execs[executionID]
	if !ok || exec.ProjectID != projectID {
		return nil, domain.ErrExecutionNotFound
	}

	copied := *exec
	return &copied, nil
}

// ListByProject returns executions for a project started at or after since,
// ordered oldest first.
func (r *ExecutionRepository) ListByProject(_ context.Context, projectID string, since time.Time) ([]*domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var execs []*domain.Execution
	for _, id := range r.order {
		exec := r.execs[id]
		if exec.ProjectID != projectID || exec.StartedAt.Before(since) {
			continue
		}
		copied := *exec
		execs = append(execs, &copied)
	}
	sort.SliceStable(execs, func(i, j int) bool {
		return execs[i].StartedAt.Before(execs[j].StartedAt)
	})
	return execs, nil
}

// ListRunningBefore returns running executions started before cutoff across
// all projects.
func (r *ExecutionRepository) ListRunningBefore(_ context.Context, cutoff time.Time) ([]*domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []*domain.Execution
	for _, id := range r.order {
		exec := r.execs[id]
		if exec.Status != domain.ExecutionStatusRunning || !exec.StartedAt.Before(cutoff) {
			continue
		}
		copied := *exec
		stale = append(stale, &copied)
	}
	return stale, nil
}
