package usecase

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"uitest-hub/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// recentExecutionLimit caps the recent-activity feed.
const recentExecutionLimit = 10

// MetricsService computes rollup statistics over a project's execution
// history within a trailing time window.
type MetricsService struct {
	execRepo          domain.ExecutionRepository
	defaultWindowDays int
	logger            *slog.Logger
	tracer            trace.Tracer
}

// NewMetricsService creates a new MetricsService instance.
func NewMetricsService(execRepo domain.ExecutionRepository, defaultWindowDays int, logger *slog.Logger) *MetricsService {
	return &MetricsService{
		execRepo:          execRepo,
		defaultWindowDays: defaultWindowDays,
		logger:            logger.With("component", "metrics-service"),
		tracer:            otel.Tracer("uitest-hub-metrics-service"),
	}
}

// ChartPoint is one calendar day of execution counts. A still-running
// execution counts toward Total but toward neither Passed nor Failed.
type ChartPoint struct {
	Date   string `json:"date"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`
	Total  int    `json:"total"`
}

// RecentExecution is the projection used by the recent-activity feed.
type RecentExecution struct {
	ID         string                 `json:"id"`
	ScriptName string                 `json:"scriptName"`
	Status     domain.ExecutionStatus `json:"status"`
	StartedAt  time.Time              `json:"startedAt"`
	DurationMS *int64                 `json:"durationMs,omitempty"`
}

// ProjectMetrics is the rollup returned to the dashboard.
type ProjectMetrics struct {
	TotalRuns        int               `json:"totalRuns"`
	PassedRuns       int               `json:"passedRuns"`
	FailedRuns       int               `json:"failedRuns"`
	PassRate         int               `json:"passRate"`
	AvgDuration      int64             `json:"avgDuration"`
	ChartData        []ChartPoint      `json:"chartData"`
	RecentExecutions []RecentExecution `json:"recentExecutions"`
}

// Project computes the rollup for a project over the trailing window.
// days = 0 selects the configured default; days < 0 is rejected.
func (s *MetricsService) Project(ctx context.Context, projectID string, days int) (*ProjectMetrics, error) {
	ctx, span := s.tracer.Start(ctx, "service.ProjectMetrics")
	defer span.End()

	if projectID == "" {
		return nil, &domain.AggregationError{Reason: "project id is required"}
	}
	if days == 0 {
		days = s.defaultWindowDays
	}
	if days < 0 {
		return nil, &domain.AggregationError{Reason: "window length must be positive"}
	}
	span.SetAttributes(
		attribute.String("project.id", projectID),
		attribute.Int("window.days", days),
	)

	since := time.Now().UTC().AddDate(0, 0, -days)
	execs, err := s.execRepo.ListByProject(ctx, projectID, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list executions for aggregation")
		return nil, err
	}
	span.SetAttributes(attribute.Int("executions.scanned", len(execs)))

	m := &ProjectMetrics{
		ChartData:        []ChartPoint{},
		RecentExecutions: []RecentExecution{},
	}
	m.TotalRuns = len(execs)

	var durationSum int64
	var durationCount int
	chartIndex := make(map[string]int)

	for _, exec := range execs {
		switch exec.Status {
		case domain.ExecutionStatusPass:
			m.PassedRuns++
		case domain.ExecutionStatusFail:
			m.FailedRuns++
		}

		// Running executions have no duration and stay out of the mean.
		if exec.DurationMS != nil {
			durationSum += *exec.DurationMS
			durationCount++
		}

		date := exec.StartedAt.UTC().Format("2006-01-02")
		idx, ok := chartIndex[date]
		if !ok {
			idx = len(m.ChartData)
			chartIndex[date] = idx
			m.ChartData = append(m.ChartData, ChartPoint{Date: date})
		}
		m.ChartData[idx].Total++
		switch exec.Status {
		case domain.ExecutionStatusPass:
			m.ChartData[idx].Passed++
		case domain.ExecutionStatusFail:
			m.ChartData[idx].Failed++
		}
	}

	if m.TotalRuns > 0 {
		m.PassRate = int(math.Round(float64(m.PassedRuns) / float64(m.TotalRuns) * 100))
	}
	if durationCount > 0 {
		m.AvgDuration = int64(math.Round(float64(durationSum) / float64(durationCount)))
	}

	recent := make([]*domain.Execution, len(execs))
	copy(recent, execs)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].StartedAt.After(recent[j].StartedAt)
	})
	if len(recent) > recentExecutionLimit {
		recent = recent[:recentExecutionLimit]
	}
	for _, exec := range recent {
		m.RecentExecutions = append(m.RecentExecutions, RecentExecution{
			ID:         exec.ID,
			ScriptName: exec.ScriptName,
			Status:     exec.Status,
			StartedAt:  exec.StartedAt,
			DurationMS: exec.DurationMS,
		})
	}

	return m, nil
}
