// internal/api/http/dashboard_handler.go
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"uitest-hub/internal/domain"
	"uitest-hub/internal/metrics"
	"uitest-hub/internal/usecase"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Route paths. The names are kept stable for the dashboard client.
const (
	RunSimulationPath    = "/api/run-simulation"
	DashboardMetricsPath = "/api/dashboard-metrics"
	TestScriptsPath      = "/api/test-scripts"
)

// DashboardHandler exposes the run and metrics operations to the dashboard
// over HTTP.
type DashboardHandler struct {
	runService     *usecase.RunService
	metricsService *usecase.MetricsService
	scriptService  *usecase.ScriptService
	logger         *slog.Logger
	validate       *validator.Validate
	tracer         trace.Tracer
}

// NewDashboardHandler creates a new DashboardHandler and initializes the
// request validator.
func NewDashboardHandler(runService *usecase.RunService, metricsService *usecase.MetricsService, scriptService *usecase.ScriptService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		runService:     runService,
		metricsService: metricsService,
		scriptService:  scriptService,
		logger:         logger.With("component", "dashboard-handler"),
		validate:       validator.New(),
		tracer:         otel.Tracer("uitest-hub-api"),
	}
}

// A helper struct to capture the status code.
type instrumentedResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *instrumentedResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// RegisterRoutes registers the dashboard routes on the mux.
func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(RunSimulationPath, h.instrument(RunSimulationPath, h.handleRunTest))
	mux.Handle(DashboardMetricsPath, h.instrument(DashboardMetricsPath, h.handleGetMetrics))
	mux.Handle(TestScriptsPath, h.instrument(TestScriptsPath, h.handleListScripts))
}

// instrument wraps a route with an otel span and a prometheus request count.
func (h *DashboardHandler) instrument(path string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "HTTP "+r.Method+" "+path, trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
		))
		defer span.End()

		r = r.WithContext(ctx)

		iw := &instrumentedResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(iw, r)

		metrics.HttpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(iw.statusCode)).Inc()

		span.SetAttributes(attribute.Int("http.status_code", iw.statusCode))
		if iw.statusCode >= 500 {
			span.SetStatus(codes.Error, "Server Error")
		}
	})
}

// handleRunTest launches a script execution (POST /api/run-simulation).
// A failing test is a 200 response with status=fail; only validation problems
// and infrastructure faults produce error responses.
func (h *DashboardHandler) handleRunTest(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.RunTest")
	defer span.End()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req RunTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "Failed to decode request body")
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.validate.Struct(req); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		span.RecordError(err)
		var details []string
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fieldErr := range validationErrors {
				details = append(details, "Field '"+fieldErr.Field()+"' failed on the '"+fieldErr.Tag()+"' tag.")
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":   "Validation failed",
			"details": details,
		})
		return
	}

	span.SetAttributes(
		attribute.String("project.id", req.ProjectID),
		attribute.String("script.name", req.ScriptName),
	)

	outcome, err := h.runService.Run(ctx, req.ToRunRequest())
	if err != nil {
		span.RecordError(err)
		switch {
		case domain.IsValidation(err):
			span.SetStatus(codes.Error, "Run request rejected")
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			span.SetStatus(codes.Error, "Failed to start execution")
			h.logger.Error("error starting execution", "script_name", req.ScriptName, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to start execution")
		}
		return
	}

	writeJSON(w, http.StatusOK, RunTestResponse{
		ExecutionID: outcome.ExecutionID,
		Status:      outcome.Status,
		Output:      outcome.Output,
		DurationMS:  outcome.DurationMS,
	})
}

// handleGetMetrics returns the project rollup (GET /api/dashboard-metrics).
func (h *DashboardHandler) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.GetMetrics")
	defer span.End()

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "projectId is required")
		return
	}
	span.SetAttributes(attribute.String("project.id", projectID))

	days := 0
	if rawDays := r.URL.Query().Get("days"); rawDays != "" {
		parsed, err := strconv.Atoi(rawDays)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}
	span.SetAttributes(attribute.Int("window.days", days))

	result, err := h.metricsService.Project(ctx, projectID, days)
	if err != nil {
		span.RecordError(err)
		switch {
		case domain.IsAggregation(err):
			span.SetStatus(codes.Error, "Metrics request rejected")
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			span.SetStatus(codes.Error, "Failed to compute metrics")
			h.logger.Error("error computing project metrics", "project_id", projectID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to compute metrics")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListScripts lists the scripts of a project (GET /api/test-scripts).
func (h *DashboardHandler) handleListScripts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.ListScripts")
	defer span.End()

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "projectId is required")
		return
	}
	span.SetAttributes(attribute.String("project.id", projectID))

	scripts, err := h.scriptService.List(ctx, projectID)
	if err != nil {
		span.RecordError(err)
		switch {
		case domain.IsValidation(err):
			span.SetStatus(codes.Error, "Script listing rejected")
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			span.SetStatus(codes.Error, "Failed to list scripts")
			h.logger.Error("error listing scripts", "project_id", projectID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list scripts")
		}
		return
	}

	writeJSON(w, http.StatusOK, toScriptResponses(scripts))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
