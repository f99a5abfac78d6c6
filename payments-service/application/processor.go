package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-saga/payments-service/domain"
	"github.com/draftea/order-saga/shared/apperr"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/infrastructure"
	"github.com/draftea/order-saga/shared/lifecycle"
	"github.com/draftea/order-saga/shared/logger"
	"github.com/draftea/order-saga/shared/metrics"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
)

const ServiceName = "payment"

// Stats summarizes a processor run. Read it only after Run returned.
type Stats struct {
	Traffic        metrics.TrafficSnapshot
	Authorized     int
	SentForReview  int
	Succeeded      int
	Declined       int
	AwaitingAtExit int
	State          lifecycle.State
	TerminatedAt   time.Time
}

// Processor is the payment service. Payments for existing customers go straight
// to the gateway; new customers are held until the fraud service answers.
//
// When built without fraud mailboxes every payment is authorized directly.
type Processor struct {
	paymentRequests infrastructure.Receiver[events.PaymentRequest]
	fraudResults    infrastructure.Receiver[events.FraudCheckResult]
	paymentResults  infrastructure.Sender[events.PaymentResult]
	fraudChecks     infrastructure.Sender[events.FraudCheck]
	gateway         domain.Gateway

	awaiting  *domain.AwaitingFraudCheck
	lifecycle *lifecycle.Machine
	traffic   *metrics.Traffic
	log       *slog.Logger

	authorized int
	succeeded  int
	declined   int
}

// NewProcessor creates the payment service. fraudResults and fraudChecks are
// either both set or both nil.
func NewProcessor(
	paymentRequests infrastructure.Receiver[events.PaymentRequest],
	fraudResults infrastructure.Receiver[events.FraudCheckResult],
	paymentResults infrastructure.Sender[events.PaymentResult],
	fraudChecks infrastructure.Sender[events.FraudCheck],
	gateway domain.Gateway,
	log *slog.Logger,
	collector *metrics.Collector,
) *Processor {
	if gateway == nil {
		gateway = domain.NewStubGateway()
	}

	return &Processor{
		paymentRequests: paymentRequests,
		fraudResults:    fraudResults,
		paymentResults:  paymentResults,
		fraudChecks:     fraudChecks,
		gateway:         gateway,
		awaiting:        domain.NewAwaitingFraudCheck(),
		lifecycle:       lifecycle.New(ServiceName),
		traffic:         metrics.NewTraffic(ServiceName, collector),
		log:             logger.ForService(log, ServiceName),
	}
}

func (p *Processor) fraudReview() bool {
	return p.fraudChecks != nil
}

// Run processes payment requests and fraud verdicts until a ShutDown request arrives.
func (p *Processor) Run(ctx context.Context) error {
	p.log.Info("payment service running", slog.Bool("fraud_review", p.fraudReview()))

	// A nil channel never becomes ready, which disables the fraud branch.
	var fraudResults <-chan events.FraudCheckResult
	if p.fraudResults != nil {
		fraudResults = p.fraudResults.Receive()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case req, ok := <-p.paymentRequests.Receive():
			if !ok {
				return p.fail(apperr.ChannelClosed(ctx, ServiceName, "payment requests"))
			}
			done, err := p.handlePaymentRequest(ctx, req)
			if err != nil {
				return p.fail(err)
			}
			if done {
				return nil
			}

		case res, ok := <-fraudResults:
			if !ok {
				return p.fail(apperr.ChannelClosed(ctx, ServiceName, "fraud check results"))
			}
			if err := p.handleFraudCheckResult(ctx, res); err != nil {
				return p.fail(err)
			}
		}
	}
}

func (p *Processor) handlePaymentRequest(ctx context.Context, req events.PaymentRequest) (bool, error) {
	ctx, span := telemetry.StartMessageSpan(ctx, ServiceName, req.Topic())
	defer span.End()
	p.traffic.Received(req.Topic())

	switch req.Kind {
	case events.KindNewOrder:
		return false, p.processPayment(ctx, req)
	case events.KindShutDown:
		return true, p.shutDown(ctx)
	default:
		return false, errors.Errorf("payment: unknown payment request kind %d", req.Kind)
	}
}

func (p *Processor) processPayment(ctx context.Context, req events.PaymentRequest) error {
	route := domain.RouteFor(req.CustomerType, p.fraudReview())

	logger.WithContext(ctx, p.log).Debug("processing payment",
		slog.String("order_id", req.OrderID.String()),
		slog.String("customer_type", req.CustomerType.String()),
		slog.String("route", string(route)),
	)

	if route == domain.RouteFraudReview {
		if err := p.awaiting.Add(req.OrderID); err != nil {
			return err
		}
		p.traffic.Pending(p.awaiting.Len())

		check := events.NewFraudCheck(req.OrderID)
		if err := p.fraudChecks.Send(ctx, check); err != nil {
			return errors.Wrap(err, "payment: failed to send fraud check")
		}
		p.traffic.Sent(check.Topic())
		return nil
	}

	p.authorized++
	approved := p.gateway.Authorize(ctx, req.OrderID)
	return p.sendPaymentResult(ctx, events.PaymentResult{OrderID: req.OrderID, Succeeded: approved})
}

func (p *Processor) handleFraudCheckResult(ctx context.Context, res events.FraudCheckResult) error {
	ctx, span := telemetry.StartMessageSpan(ctx, ServiceName, res.Topic())
	defer span.End()
	p.traffic.Received(res.Topic())

	if err := p.awaiting.Remove(res.OrderID); err != nil {
		return err
	}
	p.traffic.Pending(p.awaiting.Len())

	logger.WithContext(ctx, p.log).Debug("fraud verdict received",
		slog.String("order_id", res.OrderID.String()),
		slog.Bool("succeeded", res.Succeeded),
	)

	return p.sendPaymentResult(ctx, events.PaymentResult{OrderID: res.OrderID, Succeeded: res.Succeeded})
}

// shutDown terminates, then forwards the shutdown to the fraud service. Orders
// still out for review are reported, not treated as fatal.
func (p *Processor) shutDown(ctx context.Context) error {
	if p.awaiting.Len() > 0 {
		p.log.Warn("shutting down with orders awaiting fraud check",
			slog.Int("awaiting", p.awaiting.Len()),
		)
	}

	if err := p.lifecycle.Terminate(); err != nil {
		return err
	}

	if p.fraudReview() {
		check := events.ShutDownFraudCheck()
		if err := p.fraudChecks.Send(ctx, check); err != nil {
			return errors.Wrap(err, "payment: failed to send fraud shutdown")
		}
		p.traffic.Sent(check.Topic())
	}
	p.paymentResults.Close()
	if p.fraudReview() {
		p.fraudChecks.Close()
	}

	p.log.Info("payment service terminated",
		slog.Int("authorized", p.authorized),
		slog.Int("sent_for_review", p.awaiting.Added()),
	)
	return nil
}

func (p *Processor) sendPaymentResult(ctx context.Context, res events.PaymentResult) error {
	if err := p.paymentResults.Send(ctx, res); err != nil {
		return errors.Wrap(err, "payment: failed to send payment result")
	}
	p.traffic.Sent(res.Topic())

	if res.Succeeded {
		p.succeeded++
	} else {
		p.declined++
	}
	return nil
}

func (p *Processor) fail(err error) error {
	p.log.Error("payment service aborted",
		slog.String("kind", apperr.Kind(err)),
		slog.String("error", err.Error()),
	)
	return err
}

// Stats returns the run summary
func (p *Processor) Stats() Stats {
	return Stats{
		Traffic:        p.traffic.Snapshot(),
		Authorized:     p.authorized,
		SentForReview:  p.awaiting.Added(),
		Succeeded:      p.succeeded,
		Declined:       p.declined,
		AwaitingAtExit: p.awaiting.Len(),
		State:          p.lifecycle.State(),
		TerminatedAt:   p.lifecycle.TerminatedAt(),
	}
}
