package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"uitest-hub/internal/domain"
	"uitest-hub/internal/infra/memory"
	"uitest-hub/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedExecution writes a record with a controlled start time directly into
// the store, bypassing the lifecycle constructor.
func seedExecution(t *testing.T, repo *memory.ExecutionRepository, id, projectID string, status domain.ExecutionStatus, startedAt time.Time, durationMS int64) {
	t.Helper()

	exec := &domain.Execution{
		ID:         id,
		ProjectID:  projectID,
		ScriptID:   "s1",
		ScriptName: "login_test.py",
		Status:     status,
		StartedAt:  startedAt,
	}
	if status.Terminal() {
		completed := startedAt.Add(time.Duration(durationMS) * time.Millisecond)
		exitCode := 0
		if status == domain.ExecutionStatusFail {
			exitCode = 1
		}
		exec.CompletedAt = &completed
		exec.DurationMS = &durationMS
		exec.ExitCode = &exitCode
		exec.Output = "log output"
	}
	require.NoError(t, repo.Create(context.Background(), exec))
}

func newMetricsService(repo *memory.ExecutionRepository) *usecase.MetricsService {
	return usecase.NewMetricsService(repo, 7, testLogger())
}

func TestMetricsServiceProjectRollup(t *testing.T) {
	t.Parallel()

	repo := memory.NewExecutionRepository()
	now := time.Now().UTC()

	// 7 passes and 3 fails within the window, durations 1000..4000ms.
	durations := []int64{1000, 1300, 1600, 1900, 2200, 2500, 2800, 3100, 3400, 4000}
	for i, d := range durations {
		status := domain.ExecutionStatusPass
		if i >= 7 {
			status = domain.ExecutionStatusFail
		}
		seedExecution(t, repo, fmt.Sprintf("e%d", i), "p1", status, now.Add(-time.Duration(i)*time.Hour), d)
	}
	// A different project must not leak into the rollup.
	seedExecution(t, repo, "other", "p2", domain.ExecutionStatusPass, now, 1000)

	m, err := newMetricsService(repo).Project(context.Background(), "p1", 7)

	require.NoError(t, err)
	assert.Equal(t, 10, m.TotalRuns)
	assert.Equal(t, 7, m.PassedRuns)
	assert.Equal(t, 3, m.FailedRuns)
	assert.Equal(t, 70, m.PassRate)

	var sum int64
	for _, d := range durations {
		sum += d
	}
	assert.Equal(t, sum/int64(len(durations)), m.AvgDuration)

	// Chart totals must add up to the run count.
	chartTotal := 0
	for _, p := range m.ChartData {
		chartTotal += p.Total
	}
	assert.Equal(t, m.TotalRuns, chartTotal)
}

func TestMetricsServiceEmptyWindow(t *testing.T) {
	t.Parallel()

	repo := memory.NewExecutionRepository()

	m, err := newMetricsService(repo).Project(context.Background(), "p1", 7)

	require.NoError(t, err)
	assert.Equal(t, 0, m.TotalRuns)
	assert.Equal(t, 0, m.PassedRuns)
	assert.Equal(t, 0, m.FailedRuns)
	assert.Equal(t, 0, m.PassRate)
	assert.Equal(t, int64(0), m.AvgDuration)
	assert.NotNil(t, m.ChartData)
	assert.Empty(t, m.ChartData)
	assert.NotNil(t, m.RecentExecutions)
	assert.Empty(t, m.RecentExecutions)
}

func TestMetricsServiceRunningExecutions(t *testing.T) {
	t.Parallel()

	repo := memory.NewExecutionRepository()
	now := time.Now().UTC()

	seedExecution(t, repo, "e1", "p1", domain.ExecutionStatusPass, now.Add(-2*time.Hour), 2000)
	seedExecution(t, repo, "e2", "p1", domain.ExecutionStatusFail, now.Add(-1*time.Hour), 4000)
	seedExecution(t, repo, "e3", "p1", domain.ExecutionStatusRunning, now, 0)

	m, err := newMetricsService(repo).Project(context.Background(), "p1", 7)

	require.NoError(t, err)
	assert.Equal(t, 3, m.TotalRuns)
	assert.Equal(t, 1, m.PassedRuns)
	assert.Equal(t, 1, m.FailedRuns)
	assert.LessOrEqual(t, m.PassedRuns+m.FailedRuns, m.TotalRuns)
	// round(1/3 * 100) = 33
	assert.Equal(t, 33, m.PassRate)
	// Running execution has no duration and is excluded from the mean.
	assert.Equal(t, int64(3000), m.AvgDuration)

	chartTotal, chartPassed, chartFailed := 0, 0, 0
	for _, p := range m.ChartData {
		chartTotal += p.Total
		chartPassed += p.Passed
		chartFailed += p.Failed
	}
	assert.Equal(t, 3, chartTotal, "running execution counts toward the chart total")
	assert.Equal(t, 1, chartPassed)
	assert.Equal(t, 1, chartFailed)

	for _, recent := range m.RecentExecutions {
		if recent.ID == "e3" {
			assert.Equal(t, domain.ExecutionStatusRunning, recent.Status)
			assert.Nil(t, recent.DurationMS)
		}
	}
}

func TestMetricsServiceChartGrouping(t *testing.T) {
	t.Parallel()

	repo := memory.NewExecutionRepository()
	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour).Add(6 * time.Hour)
	yesterday := today.Add(-24 * time.Hour)

	seedExecution(t, repo, "e1", "p1", domain.ExecutionStatusPass, yesterday, 1000)
	seedExecution(t, repo, "e2", "p1", domain.ExecutionStatusFail, yesterday.Add(time.Hour), 1000)
	seedExecution(t, repo, "e3", "p1", domain.ExecutionStatusPass, today, 1000)

	m, err := newMetricsService(repo).Project(context.Background(), "p1", 7)

	require.NoError(t, err)
	require.Len(t, m.ChartData, 2)
	// Oldest-first listing means first occurrence order is chronological.
	assert.Equal(t, yesterday.Format("2006-01-02"), m.ChartData[0].Date)
	assert.Equal(t, 2, m.ChartData[0].Total)
	assert.Equal(t, 1, m.ChartData[0].Passed)
	assert.Equal(t, 1, m.ChartData[0].Failed)
	assert.Equal(t, today.Format("2006-01-02"), m.ChartData[1].Date)
	assert.Equal(t, 1, m.ChartData[1].Total)
}

func TestMetricsServiceRecentExecutions(t *testing.T) {
	t.Parallel()

	repo := memory.NewExecutionRepository()
	now := time.Now().UTC()

	for i := 0; i < 15; i++ {
		seedExecution(t, repo, fmt.Sprintf("e%02d", i), "p1", domain.ExecutionStatusPass, now.Add(-time.Duration(i)*time.Minute), 1000)
	}

	m, err := newMetricsService(repo).Project(context.Background(), "p1", 7)

	require.NoError(t, err)
	require.Len(t, m.RecentExecutions, 10)
	// Most-recently-started first: e00, e01, ... e09.
	for i, recent := range m.RecentExecutions {
		assert.Equal(t, fmt.Sprintf("e%02d", i), recent.ID)
		if i > 0 {
			assert.False(t, recent.StartedAt.After(m.RecentExecutions[i-1].StartedAt))
		}
	}
}

func TestMetricsServiceWindowFiltering(t *testing.T) {
	t.Parallel()

	repo := memory.NewExecutionRepository()
	now := time.Now().UTC()

	seedExecution(t, repo, "recent", "p1", domain.ExecutionStatusPass, now.Add(-24*time.Hour), 1000)
	seedExecution(t, repo, "ancient", "p1", domain.ExecutionStatusFail, now.Add(-30*24*time.Hour), 1000)

	m, err := newMetricsService(repo).Project(context.Background(), "p1", 7)

	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalRuns)
	assert.Equal(t, 1, m.PassedRuns)
	assert.Equal(t, 0, m.FailedRuns)

	// A wider window picks the old execution back up.
	m, err = newMetricsService(repo).Project(context.Background(), "p1", 60)
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalRuns)
}

func TestMetricsServiceIdempotence(t *testing.T) {
	t.Parallel()

	repo := memory.NewExecutionRepository()
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		status := domain.ExecutionStatusPass
		if i%2 == 1 {
			status = domain.ExecutionStatusFail
		}
		seedExecution(t, repo, fmt.Sprintf("e%d", i), "p1", status, now.Add(-time.Duration(i)*time.Hour), int64(1000+i*100))
	}

	svc := newMetricsService(repo)
	first, err := svc.Project(context.Background(), "p1", 7)
	require.NoError(t, err)
	second, err := svc.Project(context.Background(), "p1", 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMetricsServiceInvalidRequests(t *testing.T) {
	t.Parallel()

	svc := newMetricsService(memory.NewExecutionRepository())

	t.Run("missing project id", func(t *testing.T) {
		m, err := svc.Project(context.Background(), "", 7)
		require.Error(t, err)
		assert.True(t, domain.IsAggregation(err))
		assert.Nil(t, m)
	})

	t.Run("negative window", func(t *testing.T) {
		m, err := svc.Project(context.Background(), "p1", -1)
		require.Error(t, err)
		assert.True(t, domain.IsAggregation(err))
		assert.Nil(t, m)
	})

	t.Run("zero selects the default window", func(t *testing.T) {
		m, err := svc.Project(context.Background(), "p1", 0)
		require.NoError(t, err)
		assert.Equal(t, 0, m.TotalRuns)
	})
}
