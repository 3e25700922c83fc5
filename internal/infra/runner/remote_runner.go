// internal/infra/runner/remote_runner.go
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"uitest-hub/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// remoteRunner implements domain.ScriptRunner by delegating execution to a
// runner-agent HTTP endpoint, which drives the actual browser session. The
// agent reports a normal pass/fail result; transport-level failures and
// non-2xx responses are RunnerFaults.
type remoteRunner struct {
	agentURL string
	client   *http.Client
	tracer   trace.Tracer
}

type remoteRunRequest struct {
	ProjectID  string `json:"project_id"`
	ScriptID   string `json:"script_id"`
	ScriptName string `json:"script_name"`
}

type remoteRunResponse struct {
	Status     string `json:"status"`
	Output     string `json:"output"`
	DurationMS int64  `json:"duration_ms"`
	ExitCode   int    `json:"exit_code"`
}

// NewRemoteRunner creates a runner that posts scripts to agentURL. The
// request deadline is carried by the caller's context.
func NewRemoteRunner(agentURL string) domain.ScriptRunner {
	return &remoteRunner{
		agentURL: agentURL,
		client:   &http.Client{},
		tracer:   otel.Tracer("uitest-hub-remote-runner"),
	}
}

// Run delegates the execution to the runner agent.
func (r *remoteRunner) Run(ctx context.Context, script *domain.Script) (*domain.RunResult, error) {
	ctx, span := r.tracer.Start(ctx, "runner.remote.Run",
		trace.WithAttributes(
			attribute.String("script.name", script.Name),
			attribute.String("runner.agent_url", r.agentURL),
		))
	defer span.End()

	body, err := json.Marshal(remoteRunRequest{
		ProjectID:  script.ProjectID,
		ScriptID:   script.ID,
		ScriptName: script.Name,
	})
	if err != nil {
		return nil, &domain.RunnerFault{Reason: "failed to encode run request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.agentURL, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.RunnerFault{Reason: "failed to create run request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "runner agent unreachable")
		return nil, &domain.RunnerFault{Reason: "runner agent unreachable", Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a small portion of the body for diagnostics.
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("runner agent returned %s: %s", resp.Status, string(excerpt))
		span.RecordError(err)
		span.SetStatus(codes.Error, "runner agent error response")
		return nil, &domain.RunnerFault{Reason: "runner agent error response", Err: err}
	}

	var agentResp remoteRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&agentResp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode runner agent response")
		return nil, &domain.RunnerFault{Reason: "failed to decode runner agent response", Err: err}
	}

	status := domain.ExecutionStatus(agentResp.Status)
	if !status.Terminal() {
		err := fmt.Errorf("runner agent reported status %q", agentResp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid runner agent status")
		return nil, &domain.RunnerFault{Reason: "invalid runner agent status", Err: err}
	}
	if agentResp.DurationMS < 0 {
		agentResp.DurationMS = 0
	}

	return &domain.RunResult{
		Status:     status,
		Output:     agentResp.Output,
		DurationMS: agentResp.DurationMS,
		ExitCode:   agentResp.ExitCode,
	}, nil
}
