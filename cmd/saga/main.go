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

	"github.com/draftea/order-saga/config"
	"github.com/draftea/order-saga/shared/saga"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ReadConfig()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := config.BuildDependencies(ctx, cfg)
	if err != nil {
		log.Printf("Failed to build dependencies: %v", err)
		return err
	}
	defer deps.Close()

	logger := deps.Logger
	logger.Info("starting saga",
		slog.String("env", cfg.Env),
		slog.String("variant", cfg.Saga.Variant),
	)

	var server *http.Server
	if cfg.Metrics.Addr != "" {
		server = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           deps.Router,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	report, runErr := deps.Choreography.Run(ctx)
	logReport(logger, report)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server forced to shutdown", slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		logger.Error("saga aborted", slog.String("error", runErr.Error()))
		return runErr
	}
	return nil
}

func logReport(logger *slog.Logger, report *saga.Report) {
	if report == nil {
		return
	}

	attrs := []any{
		slog.String("status", string(report.Status)),
		slog.String("variant", report.Variant.String()),
		slog.Int("orders_issued", report.Basket.Issued),
		slog.Int("order_results", report.OrderResults()),
		slog.Int("succeeded", report.Basket.Succeeded),
		slog.Int("declined", report.Basket.Declined),
		slog.Int("fraud_checks", report.FraudChecks()),
		slog.Bool("drained", report.Drained()),
		slog.Duration("elapsed", report.Elapsed()),
	}
	for _, s := range report.Shutdowns() {
		if !s.At.IsZero() {
			attrs = append(attrs, slog.Time(s.Service+"_terminated_at", s.At))
		}
	}

	logger.Info("saga report", attrs...)
}
