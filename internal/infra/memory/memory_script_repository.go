package memory

import (
	"context"
	"sync"

	"uitest-hub/internal/domain"
)

var _ domain.ScriptRepository = (*ScriptRepository)(nil)

// ScriptRepository is an in-memory script catalogue for standalone mode and
// tests.
type ScriptRepository struct {
	mu      sync.RWMutex
	scripts map[string][]*domain.Script // keyed by project id
}

// NewScriptRepository creates an empty in-memory script catalogue.
func NewScriptRepository() *ScriptRepository {
	return &ScriptRepository{
		scripts: make(map[string][]*domain.Script),
	}
}

// Seed registers script definitions, replacing any previous entry with the
// same id within the project.
func (r *ScriptRepository) Seed(scripts ...*domain.Script) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, script := range scripts {
		copied := *script
		existing := r.scripts[script.ProjectID]
		replaced := false
		for i, s := range existing {
			if s.ID == script.ID {
				existing[i] = &copied
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, &copied)
		}
		r.scripts[script.ProjectID] = existing
	}
}

// Get retrieves a script definition by project and id.
func (r *ScriptRepository) Get(_ context.Context, projectID, scriptID string) (*domain.Script, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, script := range r.scripts[projectID] {
		if script.ID == scriptID {
			copied := *script
			return &copied, nil
		}
	}
	return nil, domain.ErrScriptNotFound
}

// ListByProject returns all scripts registered for a project.
func (r *ScriptRepository) ListByProject(_ context.Context, projectID string) ([]*domain.Script, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scripts := make([]*domain.Script, 0, len(r.scripts[projectID]))
	for _, script := range r.scripts[projectID] {
		copied := *script
		scripts = append(scripts, &copied)
	}
	return scripts, nil
}

// DefaultScripts is the starter catalogue seeded in standalone mode so the
// dashboard has something to run against a fresh instance.
func DefaultScripts(projectID string) []*domain.Script {
	return []*domain.Script{
		{ID: "s1", Name: "login_test.py", ProjectID: projectID},
		{ID: "s2", Name: "checkout_flow.py", ProjectID: projectID},
		{ID: "s3", Name: "user_registration.py", ProjectID: projectID},
		{ID: "s4", Name: "search_functionality.py", ProjectID: projectID},
		{ID: "s5", Name: "profile_update.py", ProjectID: projectID},
		{ID: "s6", Name: "password_reset.py", ProjectID: projectID},
	}
}
