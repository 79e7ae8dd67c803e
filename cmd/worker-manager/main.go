// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"signalx/internal/app"
	"signalx/internal/common/camunda"
	"signalx/internal/common/config"
	"signalx/internal/common/logger"
)

func main() {
	zapLog := logger.New("info", "console")
	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if !cfg.Camunda.Enabled {
		zapLog.Fatal("camunda is disabled; set camunda.enabled to run workers")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("app init failed", zap.Error(err))
	}
	defer a.Close()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = app.RetryWithBackoff(ctx, func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.Timeout))
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	var workers []worker.JobWorker
	for taskType, handler := range a.WorkerHandlers() {
		handler = camunda.Observe(a.Infra.Obs, taskType, handler)
		w := camunda.StartWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, log)
		if w != nil {
			workers = append(workers, w)
		}
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Health/Metrics shutdown failed", zap.Error(err))
	}

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
