package application

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-saga/shared/apperr"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/infrastructure"
	"github.com/draftea/order-saga/shared/lifecycle"
	"github.com/draftea/order-saga/shared/logger"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type harness struct {
	orderRequests   *infrastructure.Mailbox[events.OrderRequest]
	paymentResults  *infrastructure.Mailbox[events.PaymentResult]
	paymentRequests *infrastructure.Mailbox[events.PaymentRequest]
	orderResults    *infrastructure.Mailbox[events.OrderResult]
	coordinator     *Coordinator
	errCh           chan error
}

func startCoordinator(t *testing.T, ctx context.Context) *harness {
	t.Helper()

	h := &harness{
		orderRequests:   infrastructure.NewMailbox[events.OrderRequest](ctx, "basket->order"),
		paymentResults:  infrastructure.NewMailbox[events.PaymentResult](ctx, "payment->order"),
		paymentRequests: infrastructure.NewMailbox[events.PaymentRequest](ctx, "order->payment"),
		orderResults:    infrastructure.NewMailbox[events.OrderResult](ctx, "order->basket"),
		errCh:           make(chan error, 1),
	}
	h.coordinator = NewCoordinator(h.orderRequests, h.paymentResults, h.paymentRequests, h.orderResults, logger.Discard(), nil)

	go func() { h.errCh <- h.coordinator.Run(ctx) }()
	return h
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	var zero T
	return zero
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop")
		return nil
	}
}

func TestCoordinator_RoutesAndRelays(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := startCoordinator(t, ctx)
	alice, bob := models.NewCustomerID(), models.NewCustomerID()

	require.NoError(t, h.orderRequests.Send(ctx, events.NewOrderRequest(alice)))
	require.NoError(t, h.orderRequests.Send(ctx, events.NewOrderRequest(alice)))
	require.NoError(t, h.orderRequests.Send(ctx, events.NewOrderRequest(bob)))

	first := receive(t, h.paymentRequests.Receive())
	second := receive(t, h.paymentRequests.Receive())
	third := receive(t, h.paymentRequests.Receive())

	assert.Equal(t, events.KindNewOrder, first.Kind)
	assert.Equal(t, events.CustomerTypeNew, first.CustomerType)
	// Alice's second order is classified before her first one resolved.
	assert.Equal(t, events.CustomerTypeExisting, second.CustomerType)
	assert.Equal(t, events.CustomerTypeNew, third.CustomerType)
	assert.NotEqual(t, first.OrderID, second.OrderID)

	require.NoError(t, h.paymentResults.Send(ctx, events.PaymentResult{OrderID: third.OrderID, Succeeded: false}))
	require.NoError(t, h.paymentResults.Send(ctx, events.PaymentResult{OrderID: first.OrderID, Succeeded: true}))
	require.NoError(t, h.paymentResults.Send(ctx, events.PaymentResult{OrderID: second.OrderID, Succeeded: true}))

	assert.Equal(t, events.OrderResult{CustomerID: bob, Succeeded: false}, receive(t, h.orderResults.Receive()))
	assert.Equal(t, events.OrderResult{CustomerID: alice, Succeeded: true}, receive(t, h.orderResults.Receive()))
	assert.Equal(t, events.OrderResult{CustomerID: alice, Succeeded: true}, receive(t, h.orderResults.Receive()))

	require.NoError(t, h.orderRequests.Send(ctx, events.ShutDownOrderRequest()))
	require.NoError(t, waitErr(t, h.errCh))

	shutdown := receive(t, h.paymentRequests.Receive())
	assert.Equal(t, events.KindShutDown, shutdown.Kind)

	// Both outbound edges are closed once the coordinator terminated.
	_, open := <-h.paymentRequests.Receive()
	assert.False(t, open)
	_, open = <-h.orderResults.Receive()
	assert.False(t, open)

	stats := h.coordinator.Stats()
	assert.Equal(t, 3, stats.Routed)
	assert.Equal(t, 2, stats.ClassifiedNew)
	assert.Equal(t, 1, stats.ClassifiedExisting)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.Declined)
	assert.Equal(t, 0, stats.PendingAtExit)
	assert.Equal(t, 3, stats.MaxPending)
	assert.Equal(t, 2, stats.KnownCustomers)
	assert.Equal(t, lifecycle.StateTerminated, stats.State)
	assert.False(t, stats.TerminatedAt.IsZero())
	assert.Equal(t, 1, stats.Traffic.Sent.Count(events.PaymentRequestShutDownTopic))
	assert.Equal(t, 3, stats.Traffic.Sent.Count(events.OrderResultTopic))

	h.orderRequests.Close()
	h.paymentResults.Close()
}

func TestCoordinator_UnknownPaymentResultIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := startCoordinator(t, ctx)
	require.NoError(t, h.paymentResults.Send(ctx, events.PaymentResult{OrderID: models.NewOrderID(), Succeeded: true}))

	err := waitErr(t, h.errCh)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnknownOrder))
	assert.Equal(t, lifecycle.StateRunning, h.coordinator.Stats().State)
}

func TestCoordinator_ShutDownWithPendingPaymentIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := startCoordinator(t, ctx)
	require.NoError(t, h.orderRequests.Send(ctx, events.NewOrderRequest(models.NewCustomerID())))
	receive(t, h.paymentRequests.Receive())
	require.NoError(t, h.orderRequests.Send(ctx, events.ShutDownOrderRequest()))

	err := waitErr(t, h.errCh)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrPendingAtShutdown))

	stats := h.coordinator.Stats()
	assert.Equal(t, lifecycle.StateDraining, stats.State)
	assert.Equal(t, 1, stats.PendingAtExit)
	assert.Equal(t, 0, stats.Traffic.Sent.Count("#shutdown"), "shutdown must not be forwarded")
}

func TestCoordinator_ClosedInboundIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := startCoordinator(t, ctx)
	h.paymentResults.Close()

	err := waitErr(t, h.errCh)
	assert.True(t, errors.Is(err, apperr.ErrChannelClosed))
	assert.Equal(t, "channel_closed", apperr.Kind(err))
}

func TestCoordinator_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := startCoordinator(t, ctx)

	cancel()
	assert.ErrorIs(t, waitErr(t, h.errCh), context.Canceled)
}

func TestCoordinator_TerminatesBeforeForwardingShutDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := startCoordinator(t, ctx)
	require.NoError(t, h.orderRequests.Send(ctx, events.ShutDownOrderRequest()))

	shutdown := receive(t, h.paymentRequests.Receive())
	forwardedBy := time.Now()
	require.Equal(t, events.KindShutDown, shutdown.Kind)
	require.NoError(t, waitErr(t, h.errCh))

	stats := h.coordinator.Stats()
	assert.Equal(t, lifecycle.StateTerminated, stats.State)
	assert.False(t, stats.TerminatedAt.After(forwardedBy), "terminated after the shutdown was already delivered")
}

func pendingGauge(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == PendingPaymentsGauge {
			require.NotEmpty(t, family.GetMetric())
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("gauge %s not exported", PendingPaymentsGauge)
	return 0
}

func TestCoordinator_RecordsPendingPaymentsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := telemetry.SagaConfig
	cfg.Registerer = reg
	tel, shutdown, err := telemetry.InitTelemetry(context.Background(), cfg)
	require.NoError(t, err)
	defer shutdown()

	ctx, cancel := context.WithCancel(telemetry.WithTelemetry(context.Background(), tel))
	defer cancel()

	h := startCoordinator(t, ctx)
	require.NoError(t, h.orderRequests.Send(ctx, events.NewOrderRequest(models.NewCustomerID())))
	req := receive(t, h.paymentRequests.Receive())
	assert.Equal(t, float64(1), pendingGauge(t, reg))

	require.NoError(t, h.paymentResults.Send(ctx, events.PaymentResult{OrderID: req.OrderID, Succeeded: true}))
	receive(t, h.orderResults.Receive())
	assert.Equal(t, float64(0), pendingGauge(t, reg))
}
