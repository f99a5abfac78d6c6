package application

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-saga/fraud-service/domain"
	"github.com/draftea/order-saga/fraud-service/mocks"
	"github.com/draftea/order-saga/shared/apperr"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/infrastructure"
	"github.com/draftea/order-saga/shared/lifecycle"
	"github.com/draftea/order-saga/shared/logger"
	"github.com/draftea/order-saga/shared/metrics"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type harness struct {
	checks   *infrastructure.Mailbox[events.FraudCheck]
	results  *infrastructure.Mailbox[events.FraudCheckResult]
	screener *Screener
	errCh    chan error
}

func startScreener(t *testing.T, ctx context.Context, checker domain.Checker, collector *metrics.Collector) *harness {
	t.Helper()

	h := &harness{
		checks:  infrastructure.NewMailbox[events.FraudCheck](ctx, "payment->fraud"),
		results: infrastructure.NewMailbox[events.FraudCheckResult](ctx, "fraud->payment"),
		errCh:   make(chan error, 1),
	}
	h.screener = NewScreener(h.checks, h.results, checker, logger.Discard(), collector)

	go func() { h.errCh <- h.screener.Run(ctx) }()
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
		t.Fatal("screener did not stop")
		return nil
	}
}

func TestScreener_ScreensInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	good, bad := models.NewOrderID(), models.NewOrderID()
	checker := mocks.NewMockChecker(t)
	checker.EXPECT().Check(mock.Anything, good).Return(true, nil).Once()
	checker.EXPECT().Check(mock.Anything, bad).Return(false, nil).Once()

	h := startScreener(t, ctx, checker, collector)

	require.NoError(t, h.checks.Send(ctx, events.NewFraudCheck(good)))
	require.NoError(t, h.checks.Send(ctx, events.NewFraudCheck(bad)))
	require.NoError(t, h.checks.Send(ctx, events.ShutDownFraudCheck()))

	assert.Equal(t, events.FraudCheckResult{OrderID: good, Succeeded: true}, receive(t, h.results.Receive()))
	assert.Equal(t, events.FraudCheckResult{OrderID: bad, Succeeded: false}, receive(t, h.results.Receive()))
	require.NoError(t, waitErr(t, h.errCh))

	_, open := <-h.results.Receive()
	assert.False(t, open, "results are closed once the screener terminated")

	stats := h.screener.Stats()
	assert.Equal(t, 2, stats.Checks)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, lifecycle.StateTerminated, stats.State)
	assert.Equal(t, 1, stats.Traffic.Received.Count(events.FraudCheckShutDownTopic))

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.MessagesCounter().WithLabelValues(
		ServiceName, events.FraudCheckResultTopic.String(), string(metrics.DirectionSent))))
	histograms, err := testutil.GatherAndCount(reg, "saga_fraud_check_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, histograms)

	h.checks.Close()
}

func TestScreener_CheckerFailureIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := mocks.NewMockChecker(t)
	checker.EXPECT().Check(mock.Anything, mock.Anything).Return(false, errors.New("provider unavailable")).Once()

	h := startScreener(t, ctx, checker, nil)
	require.NoError(t, h.checks.Send(ctx, events.NewFraudCheck(models.NewOrderID())))

	err := waitErr(t, h.errCh)
	assert.True(t, errors.Is(err, apperr.ErrFraudCheckFailed))
	assert.Equal(t, "fraud_check_failed", apperr.Kind(err))
}

func TestScreener_CancelledDuringCheck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := startScreener(t, ctx, domain.NewStubChecker(time.Hour), nil)
	require.NoError(t, h.checks.Send(ctx, events.NewFraudCheck(models.NewOrderID())))

	time.Sleep(10 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, waitErr(t, h.errCh), context.Canceled)
	assert.Equal(t, 0, h.screener.Stats().Checks)
}

func TestScreener_ClosedInboundIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := startScreener(t, ctx, nil, nil)
	h.checks.Close()

	assert.True(t, errors.Is(waitErr(t, h.errCh), apperr.ErrChannelClosed))
}
