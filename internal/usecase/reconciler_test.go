package usecase_test

import (
	"context"
	"testing"
	"time"

	"uitest-hub/internal/domain"
	"uitest-hub/internal/infra/memory"
	"uitest-hub/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcilerSweep(t *testing.T) {
	t.Parallel()

	repo := memory.NewExecutionRepository()
	now := time.Now().UTC()

	// Abandoned: running for an hour, far past the grace period.
	seedExecution(t, repo, "stale", "p1", domain.ExecutionStatusRunning, now.Add(-time.Hour), 0)
	// In flight: running but still within the grace period.
	seedExecution(t, repo, "fresh", "p1", domain.ExecutionStatusRunning, now.Add(-time.Minute), 0)
	// Already terminal.
	seedExecution(t, repo, "done", "p1", domain.ExecutionStatusPass, now.Add(-2*time.Hour), 1500)

	r := usecase.NewReconciler(repo, "@every 1m", 10*time.Minute, testLogger())

	swept, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	stale, err := repo.Get(context.Background(), "p1", "stale")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusFail, stale.Status)
	assert.Contains(t, stale.Output, "abandoned")
	require.NoError(t, stale.Validate(), "reconciled record must carry the full terminal group")
	require.NotNil(t, stale.ExitCode)
	assert.Equal(t, -1, *stale.ExitCode)
	require.NotNil(t, stale.DurationMS)
	assert.GreaterOrEqual(t, *stale.DurationMS, int64(time.Hour/time.Millisecond))

	fresh, err := repo.Get(context.Background(), "p1", "fresh")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusRunning, fresh.Status)

	done, err := repo.Get(context.Background(), "p1", "done")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusPass, done.Status)

	// A second sweep finds nothing left to repair.
	swept, err = r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}

func TestReconcilerSweepEmptyStore(t *testing.T) {
	t.Parallel()

	r := usecase.NewReconciler(memory.NewExecutionRepository(), "@every 1m", 10*time.Minute, testLogger())

	swept, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestReconcilerStartStops(t *testing.T) {
	t.Parallel()

	r := usecase.NewReconciler(memory.NewExecutionRepository(), "@every 1m", 10*time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Start(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("reconciler did not stop after context cancellation")
	}
}

func TestReconcilerRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	r := usecase.NewReconciler(memory.NewExecutionRepository(), "not-a-schedule", 10*time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := r.Start(ctx)
	require.Error(t, err)
	require.ErrorContains(t, err, "schedule")
}
