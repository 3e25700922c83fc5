package memory_test

import (
	"context"
	"testing"
	"time"

	"uitest-hub/internal/domain"
	"uitest-hub/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecution(t *testing.T, projectID string) *domain.Execution {
	t.Helper()
	exec, err := domain.NewExecution(projectID, "s1", "login_test.py", "u1")
	require.NoError(t, err)
	return exec
}

func TestExecutionRepositoryCreate(t *testing.T) {
	t.Parallel()

	t.Run("successful create", func(t *testing.T) {
		repo := memory.NewExecutionRepository()
		exec := newTestExecution(t, "p1")

		require.NoError(t, repo.Create(context.Background(), exec))

		got, err := repo.Get(context.Background(), "p1", exec.ID)
		require.NoError(t, err)
		assert.Equal(t, exec.ID, got.ID)
		assert.Equal(t, domain.ExecutionStatusRunning, got.Status)
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		repo := memory.NewExecutionRepository()
		exec := newTestExecution(t, "p1")
		require.NoError(t, repo.Create(context.Background(), exec))

		err := repo.Create(context.Background(), exec)

		require.Error(t, err)
		assert.True(t, domain.IsPersistence(err))
		require.ErrorContains(t, err, "already exists")
	})

	t.Run("stored record is a copy", func(t *testing.T) {
		repo := memory.NewExecutionRepository()
		exec := newTestExecution(t, "p1")
		require.NoError(t, repo.Create(context.Background(), exec))

		exec.Status = domain.ExecutionStatusFail

		got, err := repo.Get(context.Background(), "p1", exec.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ExecutionStatusRunning, got.Status)
	})
}

func TestExecutionRepositoryUpdate(t *testing.T) {
	t.Parallel()

	t.Run("terminal update is visible atomically", func(t *testing.T) {
		repo := memory.NewExecutionRepository()
		exec := newTestExecution(t, "p1")
		require.NoError(t, repo.Create(context.Background(), exec))

		require.NoError(t, exec.Complete(domain.ExecutionStatusPass, "ok", 1200, 0))
		require.NoError(t, repo.Update(context.Background(), exec))

		got, err := repo.Get(context.Background(), "p1", exec.ID)
		require.NoError(t, err)
		require.NoError(t, got.Validate())
		assert.Equal(t, domain.ExecutionStatusPass, got.Status)
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := memory.NewExecutionRepository()
		exec := newTestExecution(t, "p1")

		err := repo.Update(context.Background(), exec)

		require.ErrorIs(t, err, domain.ErrExecutionNotFound)
	})
}

func TestExecutionRepositoryGet(t *testing.T) {
	t.Parallel()

	repo := memory.NewExecutionRepository()
	exec := newTestExecution(t, "p1")
	require.NoError(t, repo.Create(context.Background(), exec))

	t.Run("wrong project", func(t *testing.T) {
		_, err := repo.Get(context.Background(), "p2", exec.ID)
		require.ErrorIs(t, err, domain.ErrExecutionNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.Get(context.Background(), "p1", "nope")
		require.ErrorIs(t, err, domain.ErrExecutionNotFound)
	})
}

func TestExecutionRepositoryListByProject(t *testing.T) {
	t.Parallel()

	repo := memory.NewExecutionRepository()
	now := time.Now().UTC()

	mk := func(id, project string, startedAt time.Time) {
		exec := &domain.Execution{
			ID:         id,
			ProjectID:  project,
			ScriptID:   "s1",
			ScriptName: "login_test.py",
			Status:     domain.ExecutionStatusRunning,
			StartedAt:  startedAt,
		}
		require.NoError(t, repo.Create(context.Background(), exec))
	}

	mk("old", "p1", now.Add(-48*time.Hour))
	mk("newer", "p1", now.Add(-time.Hour))
	mk("newest", "p1", now)
	mk("other", "p2", now)

	execs, err := repo.ListByProject(context.Background(), "p1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, execs, 2)
	// Oldest first.
	assert.Equal(t, "newer", execs[0].ID)
	assert.Equal(t, "newest", execs[1].ID)

	execs, err = repo.ListByProject(context.Background(), "p1", time.Time{})
	require.NoError(t, err)
	assert.Len(t, execs, 3)
}

func TestExecutionRepositoryListRunningBefore(t *testing.T) {
	t.Parallel()

	repo := memory.NewExecutionRepository()
	now := time.Now().UTC()

	stale := &domain.Execution{
		ID: "stale", ProjectID: "p1", ScriptID: "s1", ScriptName: "a.py",
		Status: domain.ExecutionStatusRunning, StartedAt: now.Add(-time.Hour),
	}
	fresh := &domain.Execution{
		ID: "fresh", ProjectID: "p2", ScriptID: "s1", ScriptName: "b.py",
		Status: domain.ExecutionStatusRunning, StartedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), stale))
	require.NoError(t, repo.Create(context.Background(), fresh))

	got, err := repo.ListRunningBefore(context.Background(), now.Add(-10*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "stale", got[0].ID)
}
