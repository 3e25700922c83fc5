package runner_test

import (
	"context"
	"log/slog"
	"testing"

	"uitest-hub/internal/domain"
	"uitest-hub/internal/infra/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestSimulatedRunnerContract(t *testing.T) {
	t.Parallel()

	r := runner.NewSimulatedRunner(testLogger())
	script := &domain.Script{ID: "s1", Name: "login_test.py", ProjectID: "p1"}

	sawPass, sawFail := false, false
	for i := 0; i < 200; i++ {
		result, err := r.Run(context.Background(), script)
		require.NoError(t, err, "the stand-in never faults")

		require.True(t, result.Status.Terminal(), "status must be pass or fail")
		assert.GreaterOrEqual(t, result.DurationMS, int64(1000))
		assert.LessOrEqual(t, result.DurationMS, int64(4000))
		assert.Contains(t, result.Output, "login_test.py")
		assert.Contains(t, result.Output, "Test Execution Log")

		switch result.Status {
		case domain.ExecutionStatusPass:
			sawPass = true
			assert.Equal(t, 0, result.ExitCode)
			assert.Contains(t, result.Output, "TEST PASSED")
		case domain.ExecutionStatusFail:
			sawFail = true
			assert.Equal(t, 1, result.ExitCode)
			assert.Contains(t, result.Output, "TEST FAILED")
		}
	}

	// 200 draws at a 0.7 pass rate make an all-pass or all-fail streak
	// astronomically unlikely.
	assert.True(t, sawPass, "expected at least one pass in 200 runs")
	assert.True(t, sawFail, "expected at least one fail in 200 runs")
}
