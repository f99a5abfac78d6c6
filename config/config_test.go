package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/draftea/order-saga/shared/saga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_Local(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, "order-saga", cfg.ServiceName)
	assert.Equal(t, "extended", cfg.Saga.Variant)
	assert.Equal(t, 4, cfg.Saga.Customers)
	assert.Equal(t, 2, cfg.Saga.OrdersPerCustomer)
	assert.Equal(t, 10*time.Millisecond, cfg.Saga.FraudDelay)
	assert.True(t, cfg.Saga.FraudVerdict)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestReadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("SAGA_SAGA_VARIANT", "minimal")
	t.Setenv("SAGA_SAGA_CUSTOMERS", "7")
	t.Setenv("SAGA_SAGA_FRAUD_DELAY", "1ms")
	t.Setenv("SAGA_LOG_LEVEL", "debug")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, "minimal", cfg.Saga.Variant)
	assert.Equal(t, 7, cfg.Saga.Customers)
	assert.Equal(t, time.Millisecond, cfg.Saga.FraudDelay)
	assert.Equal(t, "debug", cfg.LogLevel)

	sagaConfig, err := cfg.SagaConfig()
	require.NoError(t, err)
	assert.Equal(t, saga.VariantMinimal, sagaConfig.Variant)
}

func TestReadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown variant", key: "SAGA_SAGA_VARIANT", value: "orchestrated"},
		{name: "negative customers", key: "SAGA_SAGA_CUSTOMERS", value: "-1"},
		{name: "unknown log level", key: "SAGA_LOG_LEVEL", value: "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "")
			t.Setenv(tt.key, tt.value)

			_, err := ReadConfig()
			assert.Error(t, err)
		})
	}
}

func TestReadConfig_MissingEnvironmentFile(t *testing.T) {
	t.Setenv("ENVIRONMENT", "does-not-exist")

	_, err := ReadConfig()
	assert.Error(t, err)
}

func TestBuildDependencies(t *testing.T) {
	cfg := &Config{
		ServiceName: "order-saga",
		Env:         "test",
		LogLevel:    "error",
		Saga: Saga{
			Variant:           "minimal",
			Customers:         2,
			OrdersPerCustomer: 1,
			PaymentApproval:   true,
		},
		Telemetry: Telemetry{Enabled: true},
	}
	require.NoError(t, cfg.Validate())

	deps, err := BuildDependencies(context.Background(), cfg)
	require.NoError(t, err)
	defer deps.Close()

	require.NotNil(t, deps.Choreography)
	require.NotNil(t, deps.Telemetry)
	assert.Equal(t, saga.VariantMinimal, deps.Choreography.Config().Variant)

	report, err := deps.Choreography.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.OrderResults())

	rec := httptest.NewRecorder()
	deps.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "saga_messages_total")
}
