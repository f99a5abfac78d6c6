package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-saga/fraud-service/domain"
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

const ServiceName = "fraud"

type Stats struct {
	Traffic      metrics.TrafficSnapshot
	Checks       int
	Approved     int
	Rejected     int
	State        lifecycle.State
	TerminatedAt time.Time
}

// Screener is the fraud service. It handles one check at a time, in arrival order,
// and is the last service to stop.
type Screener struct {
	fraudChecks  infrastructure.Receiver[events.FraudCheck]
	fraudResults infrastructure.Sender[events.FraudCheckResult]
	checker      domain.Checker

	lifecycle *lifecycle.Machine
	traffic   *metrics.Traffic
	collector *metrics.Collector
	log       *slog.Logger

	checks   int
	approved int
	rejected int
}

func NewScreener(
	fraudChecks infrastructure.Receiver[events.FraudCheck],
	fraudResults infrastructure.Sender[events.FraudCheckResult],
	checker domain.Checker,
	log *slog.Logger,
	collector *metrics.Collector,
) *Screener {
	if checker == nil {
		checker = domain.NewStubChecker(domain.DefaultCheckDelay)
	}

	return &Screener{
		fraudChecks:  fraudChecks,
		fraudResults: fraudResults,
		checker:      checker,
		lifecycle:    lifecycle.New(ServiceName),
		traffic:      metrics.NewTraffic(ServiceName, collector),
		collector:    collector,
		log:          logger.ForService(log, ServiceName),
	}
}

// Run screens orders until a ShutDown check arrives
func (s *Screener) Run(ctx context.Context) error {
	s.log.Info("fraud service running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case check, ok := <-s.fraudChecks.Receive():
			if !ok {
				return s.fail(apperr.ChannelClosed(ctx, ServiceName, "fraud checks"))
			}

			done, err := s.handleFraudCheck(ctx, check)
			if err != nil {
				return s.fail(err)
			}
			if done {
				return nil
			}
		}
	}
}

func (s *Screener) handleFraudCheck(ctx context.Context, check events.FraudCheck) (bool, error) {
	ctx, span := telemetry.StartMessageSpan(ctx, ServiceName, check.Topic())
	defer span.End()
	s.traffic.Received(check.Topic())

	switch check.Kind {
	case events.KindNewOrder:
		return false, s.screen(ctx, check.OrderID)
	case events.KindShutDown:
		return true, s.shutDown()
	default:
		return false, errors.Errorf("fraud: unknown fraud check kind %d", check.Kind)
	}
}

func (s *Screener) screen(ctx context.Context, orderID models.OrderID) error {
	start := time.Now()
	verdict, err := s.checker.Check(ctx, orderID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrapf(apperr.ErrFraudCheckFailed, "order %s: %v", orderID, err)
	}

	elapsed := time.Since(start)
	s.collector.FraudCheck(elapsed)
	telemetry.RecordHistogram(ctx, "saga_fraud_check_duration_seconds", "Fraud check duration", elapsed.Seconds())

	s.checks++
	if verdict {
		s.approved++
	} else {
		s.rejected++
	}

	logger.WithContext(ctx, s.log).Debug("order screened",
		slog.String("order_id", orderID.String()),
		slog.Bool("verdict", verdict),
		slog.Duration("elapsed", elapsed),
	)

	result := events.FraudCheckResult{OrderID: orderID, Succeeded: verdict}
	if err := s.fraudResults.Send(ctx, result); err != nil {
		return errors.Wrap(err, "fraud: failed to send fraud check result")
	}
	s.traffic.Sent(result.Topic())
	return nil
}

func (s *Screener) shutDown() error {
	if err := s.lifecycle.Terminate(); err != nil {
		return err
	}
	s.fraudResults.Close()

	s.log.Info("fraud service terminated", slog.Int("checks", s.checks))
	return nil
}

func (s *Screener) fail(err error) error {
	s.log.Error("fraud service aborted",
		slog.String("kind", apperr.Kind(err)),
		slog.String("error", err.Error()),
	)
	return err
}

// Stats returns the run summary
func (s *Screener) Stats() Stats {
	return Stats{
		Traffic:      s.traffic.Snapshot(),
		Checks:       s.checks,
		Approved:     s.approved,
		Rejected:     s.rejected,
		State:        s.lifecycle.State(),
		TerminatedAt: s.lifecycle.TerminatedAt(),
	}
}
