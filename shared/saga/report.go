package saga

import (
	"time"

	basketapp "github.com/draftea/order-saga/basket-service/application"
	fraudapp "github.com/draftea/order-saga/fraud-service/application"
	orderapp "github.com/draftea/order-saga/order-service/application"
	paymentapp "github.com/draftea/order-saga/payments-service/application"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/metrics"
)

// Report aggregates the per-service stats of one run. Fraud is nil for the minimal variant.
type Report struct {
	Variant  Variant
	Status   Status
	Started  time.Time
	Finished time.Time

	Basket  basketapp.Stats
	Order   orderapp.Stats
	Payment paymentapp.Stats
	Fraud   *fraudapp.Stats
}

// Shutdown is the moment a service reached Terminated
type Shutdown struct {
	Service string
	At      time.Time
}

func (r *Report) traffic() []metrics.TrafficSnapshot {
	snapshots := []metrics.TrafficSnapshot{r.Basket.Traffic, r.Order.Traffic, r.Payment.Traffic}
	if r.Fraud != nil {
		snapshots = append(snapshots, r.Fraud.Traffic)
	}
	return snapshots
}

// Received counts the messages matching pattern that some service handled
func (r *Report) Received(pattern events.Topic) int {
	total := 0
	for _, t := range r.traffic() {
		total += t.Received.Count(pattern)
	}
	return total
}

// Sent counts the messages matching pattern that some service sent
func (r *Report) Sent(pattern events.Topic) int {
	total := 0
	for _, t := range r.traffic() {
		total += t.Sent.Count(pattern)
	}
	return total
}

// Count sums, across services, the handled messages whose topic matches
// pattern. Handled means received, so it equals Received.
func (r *Report) Count(pattern events.Topic) int {
	return r.Received(pattern)
}

// OrderResults is the number of order results the Basket received
func (r *Report) OrderResults() int {
	return r.Basket.Traffic.Received.Count(events.OrderResultTopic)
}

// FraudChecks is the number of orders the Fraud service screened
func (r *Report) FraudChecks() int {
	if r.Fraud == nil {
		return 0
	}
	return r.Fraud.Checks
}

// Drained reports whether every owned state was empty when the services stopped
func (r *Report) Drained() bool {
	return r.Basket.OutstandingAtExit == 0 &&
		r.Order.PendingAtExit == 0 &&
		r.Payment.AwaitingAtExit == 0
}

// Shutdowns lists the termination times in cascade order. Services that did not
// terminate have a zero At.
func (r *Report) Shutdowns() []Shutdown {
	shutdowns := []Shutdown{
		{Service: basketapp.ServiceName, At: r.Basket.TerminatedAt},
		{Service: orderapp.ServiceName, At: r.Order.TerminatedAt},
		{Service: paymentapp.ServiceName, At: r.Payment.TerminatedAt},
	}
	if r.Fraud != nil {
		shutdowns = append(shutdowns, Shutdown{Service: fraudapp.ServiceName, At: r.Fraud.TerminatedAt})
	}
	return shutdowns
}

func (r *Report) Elapsed() time.Duration {
	return r.Finished.Sub(r.Started)
}
