// internal/infra/runner/process_runner.go
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"uitest-hub/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// processRunner implements domain.ScriptRunner by invoking a local
// interpreter against a script file under a configured directory. A non-zero
// exit is a normal fail result carrying the captured output; failure to
// launch at all is a RunnerFault.
type processRunner struct {
	command   string
	scriptDir string
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewProcessRunner creates a runner that executes scripts with the given
// interpreter command (e.g. python3) from scriptDir.
func NewProcessRunner(command, scriptDir string, logger *slog.Logger) domain.ScriptRunner {
	return &processRunner{
		command:   command,
		scriptDir: scriptDir,
		logger:    logger.With("runner_mode", "process"),
		tracer:    otel.Tracer("uitest-hub-process-runner"),
	}
}

// Run executes the script file and captures its combined output.
func (r *processRunner) Run(ctx context.Context, script *domain.Script) (*domain.RunResult, error) {
	ctx, span := r.tracer.Start(ctx, "runner.process.Run",
		trace.WithAttributes(
			attribute.String("script.name", script.Name),
			attribute.String("runner.command", r.command),
		))
	defer span.End()

	// Script names come from the catalogue, but never let one escape the
	// script directory.
	if script.Name != filepath.Base(script.Name) {
		err := fmt.Errorf("script name %q contains path separators", script.Name)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid script name")
		return nil, &domain.RunnerFault{Reason: "invalid script name", Err: err}
	}

	scriptPath := filepath.Join(r.scriptDir, script.Name)
	if _, err := os.Stat(scriptPath); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "script file not found")
		return nil, &domain.RunnerFault{Reason: fmt.Sprintf("script file %s not available", script.Name), Err: err}
	}

	r.logger.Info("executing script", "script_name", script.Name, "path", scriptPath)

	cmd := exec.CommandContext(ctx, r.command, scriptPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	durationMS := time.Since(start).Milliseconds()

	output := stdout.String()
	errOutput := stderr.String()
	if errOutput != "" {
		span.SetAttributes(attribute.String("process.stderr", errOutput))
		// Prepend stderr to the main output for visibility.
		if output != "" {
			output = fmt.Sprintf("[STDERR]:\n%s\n[STDOUT]:\n%s", errOutput, output)
		} else {
			output = fmt.Sprintf("[STDERR]:\n%s", errOutput)
		}
	}
	span.SetAttributes(attribute.Int64("run.duration_ms", durationMS))

	if err == nil {
		r.logger.Info("script passed", "script_name", script.Name, "duration_ms", durationMS)
		return &domain.RunResult{
			Status:     domain.ExecutionStatusPass,
			Output:     output,
			DurationMS: durationMS,
			ExitCode:   0,
		}, nil
	}

	if ctx.Err() != nil {
		span.RecordError(ctx.Err())
		span.SetStatus(codes.Error, "script execution timed out")
		return nil, &domain.RunnerFault{Reason: fmt.Sprintf("script %s timed out", script.Name), Err: ctx.Err()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The script ran and failed its assertions. That is data, not an
		// infrastructure error.
		exitCode := exitErr.ExitCode()
		r.logger.Info("script failed", "script_name", script.Name, "exit_code", exitCode, "duration_ms", durationMS)
		span.SetAttributes(attribute.Int("process.exit_code", exitCode))
		if strings.TrimSpace(output) == "" {
			output = fmt.Sprintf("script exited with code %d and produced no output", exitCode)
		}
		return &domain.RunResult{
			Status:     domain.ExecutionStatusFail,
			Output:     output,
			DurationMS: durationMS,
			ExitCode:   exitCode,
		}, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "failed to launch script")
	return nil, &domain.RunnerFault{Reason: fmt.Sprintf("failed to launch script %s", script.Name), Err: err}
}
