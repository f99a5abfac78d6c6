package handlers

import (
	"net/http"
	"time"

	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter serves /health and the prometheus /metrics endpoint for the launcher
func NewRouter(gatherer prometheus.Gatherer, tel *telemetry.Telemetry) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(telemetry.Middleware(tel))

	r.Get("/health", Health)
	r.Handle("/metrics", NewMetricsHandler(gatherer))

	return r
}

// NewMetricsHandler exposes the collectors registered on gatherer
func NewMetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
