package domain

import "context"

// RunResult is the outcome of executing a script. A failing test is a normal
// fail result with diagnostic output, not an error.
type RunResult struct {
	Status     ExecutionStatus
	Output     string
	DurationMS int64
	ExitCode   int
}

// ScriptRunner defines the interface for executing a test script. A returned
// error means the script could not be executed at all (a RunnerFault); it
// never signals an ordinary test failure.
type ScriptRunner interface {
	Run(ctx context.Context, script *Script) (*RunResult, error)
}
