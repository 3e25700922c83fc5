package memory_test

import (
	"context"
	"testing"

	"uitest-hub/internal/domain"
	"uitest-hub/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptRepositorySeedAndList(t *testing.T) {
	t.Parallel()

	repo := memory.NewScriptRepository()
	repo.Seed(memory.DefaultScripts("p1")...)

	scripts, err := repo.ListByProject(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, scripts, 6)
	assert.Equal(t, "login_test.py", scripts[0].Name)

	scripts, err = repo.ListByProject(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, scripts)
}

func TestScriptRepositorySeedReplaces(t *testing.T) {
	t.Parallel()

	repo := memory.NewScriptRepository()
	repo.Seed(&domain.Script{ID: "s1", Name: "old.py", ProjectID: "p1"})
	repo.Seed(&domain.Script{ID: "s1", Name: "new.py", ProjectID: "p1"})

	scripts, err := repo.ListByProject(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, "new.py", scripts[0].Name)
}

func TestScriptRepositoryGet(t *testing.T) {
	t.Parallel()

	repo := memory.NewScriptRepository()
	repo.Seed(&domain.Script{ID: "s1", Name: "login_test.py", ProjectID: "p1"})

	script, err := repo.Get(context.Background(), "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "login_test.py", script.Name)

	_, err = repo.Get(context.Background(), "p1", "missing")
	require.ErrorIs(t, err, domain.ErrScriptNotFound)

	_, err = repo.Get(context.Background(), "p2", "s1")
	require.ErrorIs(t, err, domain.ErrScriptNotFound)
}
