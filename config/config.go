package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/draftea/order-saga/shared/saga"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "SAGA"

type Config struct {
	ServiceName string    `mapstructure:"service_name" validate:"required"`
	Env         string    `mapstructure:"env" validate:"required"`
	LogLevel    string    `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Saga        Saga      `mapstructure:"saga"`
	Telemetry   Telemetry `mapstructure:"telemetry"`
	Metrics     Metrics   `mapstructure:"metrics"`
}

type Saga struct {
	Variant           string        `mapstructure:"variant" validate:"oneof=minimal extended"`
	Customers         int           `mapstructure:"customers" validate:"gte=0"`
	OrdersPerCustomer int           `mapstructure:"orders_per_customer" validate:"gte=0"`
	FraudDelay        time.Duration `mapstructure:"fraud_delay" validate:"gte=0"`
	FraudVerdict      bool          `mapstructure:"fraud_verdict"`
	PaymentApproval   bool          `mapstructure:"payment_approval"`
}

type Telemetry struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Metrics configures the /metrics and /health listener. An empty Addr disables it.
type Metrics struct {
	Addr string `mapstructure:"addr"`
}

// ReadConfig loads config/<ENVIRONMENT>.json (local.json by default).
// SAGA_ prefixed environment variables override file values, e.g. SAGA_SAGA_CUSTOMERS.
func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("unable to get current file")
	}

	v := viper.New()
	v.SetConfigName(getConfigName())
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Dir(filename))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults(v *viper.Viper) {
	defaults := saga.DefaultConfig()

	v.SetDefault("service_name", "order-saga")
	v.SetDefault("env", "local")
	v.SetDefault("log_level", "info")

	v.SetDefault("saga.variant", defaults.Variant.String())
	v.SetDefault("saga.customers", defaults.Customers)
	v.SetDefault("saga.orders_per_customer", defaults.OrdersPerCustomer)
	v.SetDefault("saga.fraud_delay", defaults.FraudDelay.String())
	v.SetDefault("saga.fraud_verdict", defaults.FraudVerdict)
	v.SetDefault("saga.payment_approval", defaults.PaymentApproval)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "")

	v.SetDefault("metrics.addr", "")
}

// Validate checks the struct tags of the config
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// SagaConfig converts the saga section into a choreography config
func (c *Config) SagaConfig() (saga.Config, error) {
	variant, err := saga.ParseVariant(c.Saga.Variant)
	if err != nil {
		return saga.Config{}, err
	}

	return saga.Config{
		Variant:           variant,
		Customers:         c.Saga.Customers,
		OrdersPerCustomer: c.Saga.OrdersPerCustomer,
		FraudDelay:        c.Saga.FraudDelay,
		FraudVerdict:      c.Saga.FraudVerdict,
		PaymentApproval:   c.Saga.PaymentApproval,
	}, nil
}
