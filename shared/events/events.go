package events

import "strings"

// Topic names a message kind travelling along one edge of the choreography.
// Topics are dot separated and support pattern matching.
type Topic string

// Matches reports whether t matches pattern.
//
// A "*" segment matches exactly one segment, a lone "#" matches everything,
// and a "#" prefix or suffix matches by string suffix or prefix respectively.
func (t Topic) Matches(pattern Topic) bool {
	topicStr := t.String()
	patternStr := pattern.String()

	if patternStr == "#" {
		return true
	}

	if strings.HasPrefix(patternStr, "#") && strings.HasSuffix(patternStr, "#") {
		return strings.Contains(
			topicStr,
			strings.TrimSuffix(strings.TrimPrefix(patternStr, "#"), "#"),
		)
	}

	if strings.HasPrefix(patternStr, "#") {
		return strings.HasSuffix(
			topicStr,
			strings.TrimPrefix(patternStr, "#"),
		)
	}

	if strings.HasSuffix(patternStr, "#") {
		return strings.HasPrefix(
			topicStr,
			strings.TrimSuffix(patternStr, "#"),
		)
	}

	patternParts := strings.Split(patternStr, ".")
	topicParts := strings.Split(topicStr, ".")

	return matchPattern(patternParts, topicParts)
}

func (t Topic) String() string {
	return string(t)
}

func matchPattern(patternParts, topicParts []string) bool {
	if len(patternParts) != len(topicParts) {
		return false
	}

	if len(patternParts) == 0 {
		return true
	}

	if patternParts[0] == "*" || patternParts[0] == topicParts[0] {
		return matchPattern(patternParts[1:], topicParts[1:])
	}

	return false
}

// Topic constants, one per message variant
const (
	// Basket -> Order
	OrderRequestNewTopic      Topic = "order.request.new"
	OrderRequestShutDownTopic Topic = "order.request.shutdown"
	// Order -> Basket
	OrderResultTopic Topic = "order.result"

	// Order -> Payment
	PaymentRequestNewTopic      Topic = "payment.request.new"
	PaymentRequestShutDownTopic Topic = "payment.request.shutdown"
	// Payment -> Order
	PaymentResultTopic Topic = "payment.result"

	// Payment -> Fraud
	FraudCheckOrderTopic    Topic = "fraud.check.order"
	FraudCheckShutDownTopic Topic = "fraud.check.shutdown"
	// Fraud -> Payment
	FraudCheckResultTopic Topic = "fraud.check.result"
)

// Counts tallies messages per topic. Each service owns its own Counts.
type Counts map[Topic]int

// Inc increments the tally for topic
func (c Counts) Inc(topic Topic) {
	c[topic]++
}

// Count sums the tallies of every topic matching pattern
func (c Counts) Count(pattern Topic) int {
	total := 0
	for topic, n := range c {
		if topic.Matches(pattern) {
			total += n
		}
	}
	return total
}

// Merge adds other's tallies into c
func (c Counts) Merge(other Counts) Counts {
	if c == nil {
		c = make(Counts, len(other))
	}
	for topic, n := range other {
		c[topic] += n
	}
	return c
}
