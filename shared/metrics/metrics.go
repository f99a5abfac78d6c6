// Package metrics exposes prometheus collectors for choreography traffic.
package metrics

import (
	"time"

	"github.com/draftea/order-saga/shared/events"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "saga"

// Direction of a message relative to the service recording it
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Collector groups the saga collectors. A nil *Collector is valid and records nothing.
type Collector struct {
	messages   *prometheus.CounterVec
	pending    *prometheus.GaugeVec
	fraudCheck prometheus.Histogram
}

// NewCollector creates the collectors and registers them on reg
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages exchanged between saga services.",
		}, []string{"service", "topic", "direction"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending",
			Help:      "Outstanding work items owned by a saga service.",
		}, []string{"service"}),
		fraudCheck: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fraud_check_seconds",
			Help:      "Duration of fraud checks.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	for _, col := range []prometheus.Collector{c.messages, c.pending, c.fraudCheck} {
		if err := reg.Register(col); err != nil {
			return nil, errors.Wrap(err, "failed to register saga collector")
		}
	}

	return c, nil
}

// Message counts one message on an edge
func (c *Collector) Message(service string, topic events.Topic, dir Direction) {
	if c == nil {
		return
	}
	c.messages.WithLabelValues(service, topic.String(), string(dir)).Inc()
}

// Pending sets the current size of a service's owned state
func (c *Collector) Pending(service string, n int) {
	if c == nil {
		return
	}
	c.pending.WithLabelValues(service).Set(float64(n))
}

// FraudCheck observes the duration of one fraud check
func (c *Collector) FraudCheck(d time.Duration) {
	if c == nil {
		return
	}
	c.fraudCheck.Observe(d.Seconds())
}

// MessagesCounter exposes the underlying counter vector for assertions
func (c *Collector) MessagesCounter() *prometheus.CounterVec {
	return c.messages
}

// PendingGauge exposes the underlying gauge vector for assertions
func (c *Collector) PendingGauge() *prometheus.GaugeVec {
	return c.pending
}
