package usecase

import (
	"context"
	"log/slog"
	"time"

	"uitest-hub/internal/domain"
	"uitest-hub/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunService owns the execution lifecycle: it creates the pending record,
// invokes the script runner and writes the single terminal update.
type RunService struct {
	execRepo   domain.ExecutionRepository
	runner     domain.ScriptRunner
	runTimeout time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewRunService creates a new RunService instance.
func NewRunService(execRepo domain.ExecutionRepository, runner domain.ScriptRunner, runTimeout time.Duration, logger *slog.Logger) *RunService {
	return &RunService{
		execRepo:   execRepo,
		runner:     runner,
		runTimeout: runTimeout,
		logger:     logger.With("component", "run-service"),
		tracer:     otel.Tracer("uitest-hub-run-service"),
	}
}

// RunRequest identifies the script to execute and who asked for it.
type RunRequest struct {
	ProjectID  string
	ScriptID   string
	ScriptName string
	UserID     string
}

// RunOutcome is the result returned to the caller of Run. Persisted is false
// when the terminal update could not be written; the stored record then
// remains running until the reconciler force-fails it.
type RunOutcome struct {
	ExecutionID string
	Status      domain.ExecutionStatus
	Output      string
	DurationMS  int64
	Persisted   bool
}

// Begin creates the pending execution record. If the record cannot be
// durably created no execution is considered to have started and the caller
// must not proceed to run the script.
func (s *RunService) Begin(ctx context.Context, projectID, scriptID, scriptName, userID string) (*domain.Execution, error) {
	ctx, span := s.tracer.Start(ctx, "service.BeginExecution")
	defer span.End()

	exec, err := domain.NewExecution(projectID, scriptID, scriptName, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid run request")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("execution.id", exec.ID),
		attribute.String("project.id", projectID),
		attribute.String("script.name", scriptName),
	)

	if err := s.execRepo.Create(ctx, exec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create execution record")
		return nil, err
	}
	return exec, nil
}

// Complete applies the terminal transition and persists the whole record in
// one write. It must be invoked exactly once per execution.
func (s *RunService) Complete(ctx context.Context, exec *domain.Execution, status domain.ExecutionStatus, output string, durationMS int64, exitCode int) error {
	ctx, span := s.tracer.Start(ctx, "service.CompleteExecution")
	defer span.End()
	span.SetAttributes(
		attribute.String("execution.id", exec.ID),
		attribute.String("execution.status", string(status)),
	)

	if err := exec.Complete(status, output, durationMS, exitCode); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid terminal transition")
		return err
	}
	if err := s.execRepo.Update(ctx, exec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist terminal update")
		return err
	}
	return nil
}

// Run executes a script end to end: pending record, runner invocation,
// terminal update.
//
// A RunnerFault is recovered into a terminal fail record carrying the fault
// message, so the lifecycle never stays running because of a broken runner.
// A failed terminal update is logged and counted but the computed outcome is
// still returned (degraded success); the reconciliation sweep closes the
// resulting consistency gap.
func (s *RunService) Run(ctx context.Context, req RunRequest) (*RunOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "service.Run",
		trace.WithAttributes(
			attribute.String("project.id", req.ProjectID),
			attribute.String("script.name", req.ScriptName),
		))
	defer span.End()

	exec, err := s.Begin(ctx, req.ProjectID, req.ScriptID, req.ScriptName, req.UserID)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("execution_id", exec.ID, "script_name", req.ScriptName)

	script := &domain.Script{
		ID:        req.ScriptID,
		Name:      req.ScriptName,
		ProjectID: req.ProjectID,
	}

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	start := time.Now()
	result, runErr := s.runner.Run(runCtx, script)
	if runErr != nil {
		// The script could not be executed at all. Resolve the fault into a
		// terminal fail record so the execution never stays running.
		logger.Error("script runner fault", "error", runErr)
		span.RecordError(runErr)
		span.AddEvent("runner_fault_recovered")
		result = &domain.RunResult{
			Status:     domain.ExecutionStatusFail,
			Output:     runErr.Error(),
			DurationMS: time.Since(start).Milliseconds(),
			ExitCode:   1,
		}
	}
	span.SetAttributes(
		attribute.String("run.status", string(result.Status)),
		attribute.Int64("run.duration_ms", result.DurationMS),
	)

	persisted := true
	if err := s.Complete(ctx, exec, result.Status, result.Output, result.DurationMS, result.ExitCode); err != nil {
		// Known consistency gap: the real-world outcome exists but the stored
		// record is stuck in running until the reconciler sweeps it.
		logger.Error("failed to persist terminal execution update", "error", err)
		metrics.ExecutionUpdateFailuresTotal.Inc()
		persisted = false
	}

	metrics.ScriptExecutionsTotal.WithLabelValues(req.ScriptName, string(result.Status)).Inc()
	logger.Info("script execution finished", "status", result.Status, "duration_ms", result.DurationMS, "persisted", persisted)

	return &RunOutcome{
		ExecutionID: exec.ID,
		Status:      result.Status,
		Output:      result.Output,
		DurationMS:  result.DurationMS,
		Persisted:   persisted,
	}, nil
}
