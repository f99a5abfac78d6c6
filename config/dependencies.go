package config

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/draftea/order-saga/shared/handlers"
	"github.com/draftea/order-saga/shared/logger"
	"github.com/draftea/order-saga/shared/metrics"
	"github.com/draftea/order-saga/shared/saga"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Dependencies struct {
	Logger *slog.Logger

	// Metrics
	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()

	// Saga
	Choreography *saga.Choreography

	// HTTP
	Router http.Handler
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{
		Logger:   logger.New(config.ServiceName, config.LogLevel),
		Registry: prometheus.NewRegistry(),
	}

	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	collector, err := metrics.NewCollector(deps.Registry)
	if err != nil {
		return nil, err
	}
	deps.Metrics = collector

	// Telemetry failures are logged and spans fall back to the global providers
	if config.Telemetry.Enabled {
		telConfig := telemetry.NewConfigForService(config.ServiceName, telemetry.SagaConfig.ServiceVersion, config.Telemetry.OTLPEndpoint)
		telConfig.Registerer = deps.Registry

		tel, shutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			deps.Logger.Warn("failed to initialize telemetry, using global providers", slog.String("error", err.Error()))
			deps.Telemetry = telemetry.NewTelemetry(telConfig)
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = shutdown
		}
	}

	sagaConfig, err := config.SagaConfig()
	if err != nil {
		deps.Close()
		return nil, err
	}

	choreography, err := saga.New(sagaConfig,
		saga.WithLogger(deps.Logger),
		saga.WithMetrics(deps.Metrics),
		saga.WithTelemetry(deps.Telemetry),
	)
	if err != nil {
		deps.Close()
		return nil, errors.Wrap(err, "failed to build choreography")
	}
	deps.Choreography = choreography

	deps.Router = handlers.NewRouter(deps.Registry, deps.Telemetry)

	return deps, nil
}

// Close releases the dependencies
func (d *Dependencies) Close() {
	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
		d.TelemetryShutdown = nil
	}
}
