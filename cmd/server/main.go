// cmd/server/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	http_api "uitest-hub/internal/api/http"
	"uitest-hub/internal/config"
	"uitest-hub/internal/domain"
	"uitest-hub/internal/infra/etcd"
	"uitest-hub/internal/infra/memory"
	"uitest-hub/internal/infra/runner"
	"uitest-hub/internal/tracing"
	"uitest-hub/internal/usecase"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// standaloneProjectID is the project the default script catalogue is seeded
// under when running without etcd.
const standaloneProjectID = "demo"

// corsMiddleware wraps an http.Handler with CORS headers for the dashboard
// client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")

		// Handle pre-flight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	// 1. Initialize logger and tracer
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	tracerShutdown, err := tracing.InitTracer("uitest-hub")
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tracerShutdown(context.Background()); err != nil {
			log.Printf("failed to shutdown tracer: %v", err)
		}
	}()

	// 2. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// 3. Create root context for lifecycle management
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Setup graceful shutdown
	setupGracefulShutdown(cancel)

	// 5. Wire the execution store: etcd when endpoints are configured,
	// otherwise in-memory standalone mode for local development.
	var execRepo domain.ExecutionRepository
	var scriptRepo domain.ScriptRepository
	if len(cfg.EtcdEndpoints) > 0 {
		etcdClient, err := etcd.NewClient(cfg.EtcdEndpoints, cfg.EtcdTimeout)
		if err != nil {
			log.Fatalf("failed to create etcd client: %v", err)
		}
		defer etcdClient.Close()
		logger.Info("connected to etcd", "endpoints", cfg.EtcdEndpoints)
		execRepo = etcd.NewEtcdExecutionRepository(etcdClient, logger)
		scriptRepo = etcd.NewEtcdScriptRepository(etcdClient, logger)
	} else {
		logger.Warn("no etcd endpoints configured, running in standalone in-memory mode")
		execRepo = memory.NewExecutionRepository()
		seeded := memory.NewScriptRepository()
		seeded.Seed(memory.DefaultScripts(standaloneProjectID)...)
		scriptRepo = seeded
	}

	// 6. Wire the script runner
	var scriptRunner domain.ScriptRunner
	switch cfg.RunnerMode {
	case config.RunnerModeProcess:
		scriptRunner = runner.NewProcessRunner(cfg.ScriptCommand, cfg.ScriptDir, logger)
	case config.RunnerModeRemote:
		scriptRunner = runner.NewRemoteRunner(cfg.RunnerAgentURL)
	default:
		scriptRunner = runner.NewSimulatedRunner(logger)
	}
	logger.Info("script runner initialized", "mode", cfg.RunnerMode)

	// 7. Instantiate services
	runService := usecase.NewRunService(execRepo, scriptRunner, cfg.RunTimeout, logger)
	metricsService := usecase.NewMetricsService(execRepo, cfg.DefaultWindowDays, logger)
	scriptService := usecase.NewScriptService(scriptRepo, logger)
	reconciler := usecase.NewReconciler(execRepo, cfg.ReconcileSchedule, cfg.ReconcileGrace, logger)

	dashboardHandler := http_api.NewDashboardHandler(runService, metricsService, scriptService, logger)

	// 8. Register routes and metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	dashboardHandler.RegisterRoutes(mux)

	// 9. Start the reconciliation sweep
	go func() {
		if err := reconciler.Start(rootCtx); err != nil && err != context.Canceled {
			log.Fatalf("reconciler stopped with error: %v", err)
		}
	}()

	// 10. Start HTTP API server with CORS middleware
	logger.Info("starting HTTP API server", "addr", cfg.HttpListenAddr)
	server := &http.Server{
		Addr:    cfg.HttpListenAddr,
		Handler: corsMiddleware(mux),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// 11. Block until shutdown
	<-rootCtx.Done()
	logger.Info("shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server shutdown failed: %v", err)
	}

	logger.Info("shut down")
}

func setupGracefulShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		cancel()
	}()
}
