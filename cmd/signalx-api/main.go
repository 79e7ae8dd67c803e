// cmd/signalx-api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"signalx/internal/app"
	"signalx/internal/common/config"
	"signalx/internal/common/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting SignalX API",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("app init failed", zap.Error(err))
	}
	defer a.Close()

	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			zapLog.Fatal("scheduler start failed", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.APIHandler().Routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP shutdown failed", zap.Error(err))
	}
	zapLog.Info("SignalX API stopped gracefully")
}
