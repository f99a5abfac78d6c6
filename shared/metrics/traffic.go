package metrics

import "github.com/draftea/order-saga/shared/events"

// Traffic tallies the messages one service sent and received.
// It is owned by the service goroutine; the collector it forwards to is safe for concurrent use.
type Traffic struct {
	service   string
	sent      events.Counts
	received  events.Counts
	collector *Collector
}

// NewTraffic creates a tally for service. collector may be nil.
func NewTraffic(service string, collector *Collector) *Traffic {
	return &Traffic{
		service:   service,
		sent:      make(events.Counts),
		received:  make(events.Counts),
		collector: collector,
	}
}

// Sent counts an outbound message
func (t *Traffic) Sent(topic events.Topic) {
	t.sent.Inc(topic)
	t.collector.Message(t.service, topic, DirectionSent)
}

// Received counts an inbound message
func (t *Traffic) Received(topic events.Topic) {
	t.received.Inc(topic)
	t.collector.Message(t.service, topic, DirectionReceived)
}

// Pending publishes the size of the service's owned state
func (t *Traffic) Pending(n int) {
	t.collector.Pending(t.service, n)
}

// Snapshot copies the tallies
func (t *Traffic) Snapshot() TrafficSnapshot {
	return TrafficSnapshot{
		Service:  t.service,
		Sent:     events.Counts(nil).Merge(t.sent),
		Received: events.Counts(nil).Merge(t.received),
	}
}

// TrafficSnapshot is an immutable copy of a service's tallies
type TrafficSnapshot struct {
	Service  string
	Sent     events.Counts
	Received events.Counts
}
