package usecase

import (
	"context"
	"log/slog"

	"uitest-hub/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ScriptService is a thin read façade over the script catalogue. Script CRUD
// itself lives in an external service.
type ScriptService struct {
	scriptRepo domain.ScriptRepository
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewScriptService creates a new ScriptService instance.
func NewScriptService(scriptRepo domain.ScriptRepository, logger *slog.Logger) *ScriptService {
	return &ScriptService{
		scriptRepo: scriptRepo,
		logger:     logger.With("component", "script-service"),
		tracer:     otel.Tracer("uitest-hub-script-service"),
	}
}

// List returns the scripts registered for a project.
func (s *ScriptService) List(ctx context.Context, projectID string) ([]*domain.Script, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListScripts")
	defer span.End()

	if projectID == "" {
		return nil, &domain.ValidationError{Field: "project_id", Reason: "cannot be empty"}
	}
	span.SetAttributes(attribute.String("project.id", projectID))

	scripts, err := s.scriptRepo.ListByProject(ctx, projectID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list scripts from repository")
	}
	return scripts, err
}
