package http

import (
	"uitest-hub/internal/domain"
	"uitest-hub/internal/usecase"
)

// RunTestRequest is the DTO for launching a script execution.
type RunTestRequest struct {
	ProjectID  string `json:"project_id" validate:"required,min=1,max=128"`
	ScriptID   string `json:"script_id" validate:"required,min=1,max=128"`
	ScriptName string `json:"script_name" validate:"required,min=1,max=256"`
	UserID     string `json:"user_id" validate:"omitempty,max=128"`
}

// ToRunRequest converts the DTO into the service-level run request.
func (r *RunTestRequest) ToRunRequest() usecase.RunRequest {
	return usecase.RunRequest{
		ProjectID:  r.ProjectID,
		ScriptID:   r.ScriptID,
		ScriptName: r.ScriptName,
		UserID:     r.UserID,
	}
}

// RunTestResponse is returned for every run that actually executed,
// including ordinary test failures.
type RunTestResponse struct {
	ExecutionID string                 `json:"execution_id"`
	Status      domain.ExecutionStatus `json:"status"`
	Output      string                 `json:"output"`
	DurationMS  int64                  `json:"duration_ms"`
}

// ScriptResponse is the listing projection of a script definition.
type ScriptResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func toScriptResponses(scripts []*domain.Script) []ScriptResponse {
	out := make([]ScriptResponse, 0, len(scripts))
	for _, s := range scripts {
		out = append(out, ScriptResponse{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
		})
	}
	return out
}
