package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-saga/basket-service/domain"
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

const ServiceName = "basket"

// Stats summarizes a basket run. Read it only after Run returned.
type Stats struct {
	Traffic           metrics.TrafficSnapshot
	Customers         int
	Issued            int
	Succeeded         int
	Declined          int
	OutstandingAtExit int
	State             lifecycle.State
	TerminatedAt      time.Time
}

// Basket drives the saga: it places OrdersPerCustomer orders for each of
// Customers fresh customers and starts the shutdown cascade once every order resolved.
type Basket struct {
	orderRequests infrastructure.Sender[events.OrderRequest]
	orderResults  infrastructure.Receiver[events.OrderResult]

	customers         int
	ordersPerCustomer int

	pending   *domain.PendingOrders
	lifecycle *lifecycle.Machine
	traffic   *metrics.Traffic
	log       *slog.Logger

	issued    int
	succeeded int
	declined  int
}

func NewBasket(
	orderRequests infrastructure.Sender[events.OrderRequest],
	orderResults infrastructure.Receiver[events.OrderResult],
	customers, ordersPerCustomer int,
	log *slog.Logger,
	collector *metrics.Collector,
) *Basket {
	return &Basket{
		orderRequests:     orderRequests,
		orderResults:      orderResults,
		customers:         customers,
		ordersPerCustomer: ordersPerCustomer,
		pending:           domain.NewPendingOrders(),
		lifecycle:         lifecycle.New(ServiceName),
		traffic:           metrics.NewTraffic(ServiceName, collector),
		log:               logger.ForService(log, ServiceName),
	}
}

// Run issues every order, then collects results until none is outstanding.
func (b *Basket) Run(ctx context.Context) error {
	b.log.Info("basket service running",
		slog.Int("customers", b.customers),
		slog.Int("orders_per_customer", b.ordersPerCustomer),
	)

	if err := b.placeOrders(ctx); err != nil {
		return b.fail(err)
	}

	if b.pending.Empty() {
		return b.shutDown(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res, ok := <-b.orderResults.Receive():
			if !ok {
				return b.fail(apperr.ChannelClosed(ctx, ServiceName, "order results"))
			}
			if err := b.handleOrderResult(ctx, res); err != nil {
				return b.fail(err)
			}
			if b.pending.Empty() {
				return b.shutDown(ctx)
			}
		}
	}
}

func (b *Basket) placeOrders(ctx context.Context) error {
	for i := 0; i < b.customers; i++ {
		customerID := models.NewCustomerID()
		for j := 0; j < b.ordersPerCustomer; j++ {
			b.pending.Issue(customerID)
			b.traffic.Pending(b.pending.Total())

			if err := b.send(ctx, events.NewOrderRequest(customerID)); err != nil {
				return err
			}
			b.issued++
		}
	}
	return nil
}

func (b *Basket) handleOrderResult(ctx context.Context, res events.OrderResult) error {
	ctx, span := telemetry.StartMessageSpan(ctx, ServiceName, res.Topic())
	defer span.End()
	b.traffic.Received(res.Topic())

	if err := b.pending.Resolve(res.CustomerID); err != nil {
		return err
	}
	b.traffic.Pending(b.pending.Total())

	if res.Succeeded {
		b.succeeded++
	} else {
		b.declined++
	}

	logger.WithContext(ctx, b.log).Debug("order resolved",
		slog.String("customer_id", res.CustomerID.String()),
		slog.Bool("succeeded", res.Succeeded),
		slog.Int("customer_outstanding", b.pending.Outstanding(res.CustomerID)),
		slog.Int("outstanding", b.pending.Total()),
	)
	return nil
}

// shutDown terminates before forwarding, so the basket's TerminatedAt precedes the order service's.
func (b *Basket) shutDown(ctx context.Context) error {
	if err := b.lifecycle.Terminate(); err != nil {
		return b.fail(err)
	}

	if err := b.send(ctx, events.ShutDownOrderRequest()); err != nil {
		return b.fail(err)
	}
	b.orderRequests.Close()

	b.log.Info("basket service terminated",
		slog.Int("issued", b.issued),
		slog.Int("succeeded", b.succeeded),
		slog.Int("declined", b.declined),
	)
	return nil
}

func (b *Basket) send(ctx context.Context, req events.OrderRequest) error {
	if err := b.orderRequests.Send(ctx, req); err != nil {
		return errors.Wrap(err, "basket: failed to send order request")
	}
	b.traffic.Sent(req.Topic())
	return nil
}

func (b *Basket) fail(err error) error {
	b.log.Error("basket service aborted",
		slog.String("kind", apperr.Kind(err)),
		slog.String("error", err.Error()),
	)
	return err
}

// Stats returns the run summary
func (b *Basket) Stats() Stats {
	return Stats{
		Traffic:           b.traffic.Snapshot(),
		Customers:         b.customers,
		Issued:            b.issued,
		Succeeded:         b.succeeded,
		Declined:          b.declined,
		OutstandingAtExit: b.pending.Total(),
		State:             b.lifecycle.State(),
		TerminatedAt:      b.lifecycle.TerminatedAt(),
	}
}
