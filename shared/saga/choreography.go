package saga

import (
	"context"
	"log/slog"
	"time"

	basketapp "github.com/draftea/order-saga/basket-service/application"
	fraudapp "github.com/draftea/order-saga/fraud-service/application"
	frauddomain "github.com/draftea/order-saga/fraud-service/domain"
	orderapp "github.com/draftea/order-saga/order-service/application"
	paymentapp "github.com/draftea/order-saga/payments-service/application"
	paymentdomain "github.com/draftea/order-saga/payments-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/infrastructure"
	"github.com/draftea/order-saga/shared/logger"
	"github.com/draftea/order-saga/shared/metrics"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Config parameterizes one choreography run
type Config struct {
	Variant           Variant
	Customers         int
	OrdersPerCustomer int
	FraudDelay        time.Duration
	FraudVerdict      bool
	PaymentApproval   bool
}

// DefaultConfig is the extended scenario: 4 customers placing 2 orders each.
func DefaultConfig() Config {
	return Config{
		Variant:           VariantExtended,
		Customers:         4,
		OrdersPerCustomer: 2,
		FraudDelay:        frauddomain.DefaultCheckDelay,
		FraudVerdict:      true,
		PaymentApproval:   true,
	}
}

func (c Config) validate() error {
	if _, err := ParseVariant(string(c.Variant)); err != nil {
		return err
	}
	if c.Customers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "customers must not be negative, got %d", c.Customers)
	}
	if c.OrdersPerCustomer < 0 {
		return errors.Wrapf(ErrInvalidConfig, "orders per customer must not be negative, got %d", c.OrdersPerCustomer)
	}
	if c.FraudDelay < 0 {
		return errors.Wrapf(ErrInvalidConfig, "fraud delay must not be negative, got %s", c.FraudDelay)
	}
	return nil
}

type Option func(*Choreography)

func WithLogger(log *slog.Logger) Option {
	return func(c *Choreography) { c.log = log }
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Choreography) { c.collector = collector }
}

func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(c *Choreography) { c.telemetry = tel }
}

// WithChecker replaces the stub fraud checker
func WithChecker(checker frauddomain.Checker) Option {
	return func(c *Choreography) { c.checker = checker }
}

// WithGateway replaces the stub payment gateway
func WithGateway(gateway paymentdomain.Gateway) Option {
	return func(c *Choreography) { c.gateway = gateway }
}

// Choreography runs the saga services, one goroutine each, connected by unbounded mailboxes.
type Choreography struct {
	config    Config
	log       *slog.Logger
	collector *metrics.Collector
	telemetry *telemetry.Telemetry
	checker   frauddomain.Checker
	gateway   paymentdomain.Gateway
}

func New(config Config, opts ...Option) (*Choreography, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	c := &Choreography{config: config}
	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.Discard()
	}
	if c.checker == nil {
		c.checker = &frauddomain.StubChecker{Delay: config.FraudDelay, Verdict: config.FraudVerdict}
	}
	if c.gateway == nil {
		c.gateway = &paymentdomain.StubGateway{Approve: config.PaymentApproval}
	}

	return c, nil
}

func (c *Choreography) Config() Config {
	return c.config
}

type service interface {
	Run(ctx context.Context) error
}

// Run starts every service and waits until the shutdown cascade reached the last one.
//
// A fatal error in any service cancels the others; the first error is returned
// together with the report of the partial run.
func (c *Choreography) Run(ctx context.Context) (*Report, error) {
	ctx = telemetry.WithTelemetry(ctx, c.telemetry)
	ctx, span := telemetry.StartSpan(ctx, "saga.run")
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)

	orderRequests := infrastructure.NewMailbox[events.OrderRequest](gctx, "basket->order")
	orderResults := infrastructure.NewMailbox[events.OrderResult](gctx, "order->basket")
	paymentRequests := infrastructure.NewMailbox[events.PaymentRequest](gctx, "order->payment")
	paymentResults := infrastructure.NewMailbox[events.PaymentResult](gctx, "payment->order")

	basket := basketapp.NewBasket(orderRequests, orderResults,
		c.config.Customers, c.config.OrdersPerCustomer, c.log, c.collector)
	order := orderapp.NewCoordinator(orderRequests, paymentResults, paymentRequests, orderResults,
		c.log, c.collector)

	var (
		payment *paymentapp.Processor
		fraud   *fraudapp.Screener
	)
	if c.config.Variant == VariantExtended {
		fraudChecks := infrastructure.NewMailbox[events.FraudCheck](gctx, "payment->fraud")
		fraudResults := infrastructure.NewMailbox[events.FraudCheckResult](gctx, "fraud->payment")

		payment = paymentapp.NewProcessor(paymentRequests, fraudResults, paymentResults, fraudChecks,
			c.gateway, c.log, c.collector)
		fraud = fraudapp.NewScreener(fraudChecks, fraudResults, c.checker, c.log, c.collector)
	} else {
		payment = paymentapp.NewProcessor(paymentRequests, nil, paymentResults, nil,
			c.gateway, c.log, c.collector)
	}

	services := []service{basket, order, payment}
	if fraud != nil {
		services = append(services, fraud)
	}

	c.log.Info("saga started",
		slog.String("variant", c.config.Variant.String()),
		slog.Int("customers", c.config.Customers),
		slog.Int("orders_per_customer", c.config.OrdersPerCustomer),
	)

	started := time.Now()
	for _, svc := range services {
		g.Go(func() error { return svc.Run(gctx) })
	}
	err := g.Wait()

	report := &Report{
		Variant:  c.config.Variant,
		Status:   StatusCompleted,
		Started:  started,
		Finished: time.Now(),
		Basket:   basket.Stats(),
		Order:    order.Stats(),
		Payment:  payment.Stats(),
	}
	if fraud != nil {
		stats := fraud.Stats()
		report.Fraud = &stats
	}

	if err != nil {
		report.Status = StatusFailed
		span.RecordError(err)
		c.log.Error("saga failed", slog.String("error", err.Error()))
		return report, errors.Wrap(err, "saga failed")
	}

	c.log.Info("saga completed",
		slog.Int("order_results", report.OrderResults()),
		slog.Int("fraud_checks", report.FraudChecks()),
		slog.Duration("elapsed", report.Elapsed()),
	)
	return report, nil
}
