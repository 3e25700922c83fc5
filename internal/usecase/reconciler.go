package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"uitest-hub/internal/domain"
	"uitest-hub/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Reconciler closes the consistency gap left by failed terminal updates: a
// record stuck in running beyond the grace period is abandoned and
// force-failed so the lifecycle invariant holds again.
type Reconciler struct {
	execRepo domain.ExecutionRepository
	schedule string
	grace    time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewReconciler creates a reconciliation sweep with the given cron schedule
// and grace period. The grace period must exceed the run timeout so in-flight
// executions are never swept.
func NewReconciler(execRepo domain.ExecutionRepository, schedule string, grace time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		execRepo: execRepo,
		schedule: schedule,
		grace:    grace,
		cron:     cron.New(),
		logger:   logger.With("component", "reconciler"),
		tracer:   otel.Tracer("uitest-hub-reconciler"),
	}
}

// Start schedules the sweep and blocks until the context is cancelled.
func (r *Reconciler) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.schedule, r.runSweep); err != nil {
		return fmt.Errorf("failed to schedule reconciliation sweep: %w", err)
	}
	r.logger.Info("reconciler started", "schedule", r.schedule, "grace", r.grace.String())
	r.cron.Start()
	<-ctx.Done()
	r.logger.Info("reconciler stopping...")
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.logger.Info("reconciler stopped")
	return ctx.Err()
}

// runSweep is invoked by the cron library; it starts a fresh trace for each
// background sweep.
func (r *Reconciler) runSweep() {
	ctx, span := r.tracer.Start(context.Background(), "reconciler.Sweep")
	defer span.End()

	swept, err := r.Sweep(ctx)
	if err != nil {
		r.logger.Error("reconciliation sweep failed", "error", err)
		span.RecordError(err)
		return
	}
	span.SetAttributes(attribute.Int("executions.reconciled", swept))
}

// Sweep force-fails every execution still running past the grace period and
// returns how many records it repaired.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.grace)
	stale, err := r.execRepo.ListRunningBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, exec := range stale {
		age := time.Since(exec.StartedAt)
		output := fmt.Sprintf("execution abandoned: still running %s after start, force-failed by reconciliation sweep (grace period %s)", age.Round(time.Second), r.grace)
		if err := exec.Complete(domain.ExecutionStatusFail, output, age.Milliseconds(), -1); err != nil {
			r.logger.Warn("skipping unreconcilable execution", "execution_id", exec.ID, "error", err)
			continue
		}
		if err := r.execRepo.Update(ctx, exec); err != nil {
			r.logger.Error("failed to persist reconciled execution", "execution_id", exec.ID, "error", err)
			continue
		}
		r.logger.Info("force-failed abandoned execution", "execution_id", exec.ID, "project_id", exec.ProjectID, "age", age.Round(time.Second).String())
		metrics.ExecutionsReconciledTotal.Inc()
		swept++
	}
	return swept, nil
}
