package domain

import "context"

// ScriptRepository defines the read-side interface to the script catalogue.
// Script definitions are owned by an external CRUD layer; this service only
// lists and resolves them.
type ScriptRepository interface {
	Get(ctx context.Context, projectID, scriptID string) (*Script, error)
	ListByProject(ctx context.Context, projectID string) ([]*Script, error)
}
