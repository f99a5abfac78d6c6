package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-saga/order-service/domain"
	"github.com/draftea/order-saga/shared/apperr"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/infrastructure"
	"github.com/draftea/order-saga/shared/lifecycle"
	"github.com/draftea/order-saga/shared/logger"
	"github.com/draftea/order-saga/shared/metrics"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
)

const ServiceName = "order"

// PendingPaymentsGauge is the OpenTelemetry gauge tracking orders awaiting payment
const PendingPaymentsGauge = "saga_order_pending_payments"

// Stats summarizes a coordinator run. Read it only after Run returned.
type Stats struct {
	Traffic            metrics.TrafficSnapshot
	Routed             int
	ClassifiedNew      int
	ClassifiedExisting int
	Succeeded          int
	Declined           int
	PendingAtExit      int
	MaxPending         int
	KnownCustomers     int
	State              lifecycle.State
	TerminatedAt       time.Time
}

// Coordinator is the order service: it mints order ids, classifies customers,
// tracks orders awaiting payment and relays payment outcomes back to the basket.
//
// All of its state is owned by the goroutine executing Run.
type Coordinator struct {
	orderRequests   infrastructure.Receiver[events.OrderRequest]
	paymentResults  infrastructure.Receiver[events.PaymentResult]
	paymentRequests infrastructure.Sender[events.PaymentRequest]
	orderResults    infrastructure.Sender[events.OrderResult]

	pending   *domain.PendingPayments
	customers *domain.ExistingCustomers
	lifecycle *lifecycle.Machine
	traffic   *metrics.Traffic
	log       *slog.Logger

	succeeded int
	declined  int
	newCount  int
	existing  int
}

// NewCoordinator creates the order service
func NewCoordinator(
	orderRequests infrastructure.Receiver[events.OrderRequest],
	paymentResults infrastructure.Receiver[events.PaymentResult],
	paymentRequests infrastructure.Sender[events.PaymentRequest],
	orderResults infrastructure.Sender[events.OrderResult],
	log *slog.Logger,
	collector *metrics.Collector,
) *Coordinator {
	return &Coordinator{
		orderRequests:   orderRequests,
		paymentResults:  paymentResults,
		paymentRequests: paymentRequests,
		orderResults:    orderResults,
		pending:         domain.NewPendingPayments(),
		customers:       domain.NewExistingCustomers(),
		lifecycle:       lifecycle.New(ServiceName),
		traffic:         metrics.NewTraffic(ServiceName, collector),
		log:             logger.ForService(log, ServiceName),
	}
}

// Run waits on order requests and payment results, whichever is ready first,
// until a ShutDown request arrives. A non-nil error is fatal.
func (c *Coordinator) Run(ctx context.Context) error {
	c.log.Info("order service running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case req, ok := <-c.orderRequests.Receive():
			if !ok {
				return c.fail(apperr.ChannelClosed(ctx, ServiceName, "order requests"))
			}
			done, err := c.handleOrderRequest(ctx, req)
			if err != nil {
				return c.fail(err)
			}
			if done {
				return nil
			}

		case res, ok := <-c.paymentResults.Receive():
			if !ok {
				return c.fail(apperr.ChannelClosed(ctx, ServiceName, "payment results"))
			}
			if err := c.handlePaymentResult(ctx, res); err != nil {
				return c.fail(err)
			}
		}
	}
}

func (c *Coordinator) handleOrderRequest(ctx context.Context, req events.OrderRequest) (bool, error) {
	ctx, span := telemetry.StartMessageSpan(ctx, ServiceName, req.Topic())
	defer span.End()
	c.traffic.Received(req.Topic())

	switch req.Kind {
	case events.KindNewOrder:
		return false, c.routeNewOrder(ctx, req.CustomerID)
	case events.KindShutDown:
		return true, c.shutDown(ctx)
	default:
		return false, errors.Errorf("order: unknown order request kind %d", req.Kind)
	}
}

func (c *Coordinator) routeNewOrder(ctx context.Context, customerID models.CustomerID) error {
	orderID := models.NewOrderID()
	customerType := c.customers.Classify(customerID)

	if err := c.pending.Track(orderID, customerID); err != nil {
		return err
	}
	c.recordPending(ctx)

	if customerType == events.CustomerTypeNew {
		c.newCount++
	} else {
		c.existing++
	}

	logger.WithContext(ctx, c.log).Debug("routing new order",
		slog.String("order_id", orderID.String()),
		slog.String("customer_id", customerID.String()),
		slog.String("customer_type", customerType.String()),
	)

	return c.sendPaymentRequest(ctx, events.NewPaymentRequest(orderID, customerType))
}

func (c *Coordinator) recordPending(ctx context.Context) {
	c.traffic.Pending(c.pending.Len())
	telemetry.RecordGauge(ctx, PendingPaymentsGauge, "Orders awaiting a payment result", float64(c.pending.Len()))
}

func (c *Coordinator) handlePaymentResult(ctx context.Context, res events.PaymentResult) error {
	ctx, span := telemetry.StartMessageSpan(ctx, ServiceName, res.Topic())
	defer span.End()
	c.traffic.Received(res.Topic())

	customerID, err := c.pending.Resolve(res.OrderID)
	if err != nil {
		return err
	}
	c.recordPending(ctx)
	c.customers.Remember(customerID)

	if res.Succeeded {
		c.succeeded++
	} else {
		c.declined++
	}

	logger.WithContext(ctx, c.log).Debug("relaying payment result",
		slog.String("order_id", res.OrderID.String()),
		slog.String("customer_id", customerID.String()),
		slog.Bool("succeeded", res.Succeeded),
	)

	result := events.OrderResult{CustomerID: customerID, Succeeded: res.Succeeded}
	if err := c.orderResults.Send(ctx, result); err != nil {
		return errors.Wrap(err, "order: failed to send order result")
	}
	c.traffic.Sent(result.Topic())
	return nil
}

// shutDown drains and checks that no order still awaits payment. It terminates
// before forwarding the shutdown so termination times follow the cascade.
func (c *Coordinator) shutDown(ctx context.Context) error {
	if err := c.lifecycle.Drain(); err != nil {
		return err
	}

	if !c.pending.Empty() {
		return errors.Wrapf(apperr.ErrPendingAtShutdown, "order: %d orders still awaiting payment", c.pending.Len())
	}

	if err := c.lifecycle.Terminate(); err != nil {
		return err
	}

	if err := c.sendPaymentRequest(ctx, events.ShutDownPaymentRequest()); err != nil {
		return err
	}
	c.paymentRequests.Close()
	c.orderResults.Close()

	c.log.Info("order service terminated",
		slog.Int("routed", c.pending.Tracked()),
		slog.Int("known_customers", c.customers.Len()),
	)
	return nil
}

func (c *Coordinator) sendPaymentRequest(ctx context.Context, req events.PaymentRequest) error {
	if err := c.paymentRequests.Send(ctx, req); err != nil {
		return errors.Wrap(err, "order: failed to send payment request")
	}
	c.traffic.Sent(req.Topic())
	return nil
}

func (c *Coordinator) fail(err error) error {
	c.log.Error("order service aborted",
		slog.String("kind", apperr.Kind(err)),
		slog.String("error", err.Error()),
	)
	return err
}

// Stats returns the run summary
func (c *Coordinator) Stats() Stats {
	return Stats{
		Traffic:            c.traffic.Snapshot(),
		Routed:             c.pending.Tracked(),
		ClassifiedNew:      c.newCount,
		ClassifiedExisting: c.existing,
		Succeeded:          c.succeeded,
		Declined:           c.declined,
		PendingAtExit:      c.pending.Len(),
		MaxPending:         c.pending.MaxLen(),
		KnownCustomers:     c.customers.Len(),
		State:              c.lifecycle.State(),
		TerminatedAt:       c.lifecycle.TerminatedAt(),
	}
}
