package domain

import (
	"context"
	"time"

	"github.com/draftea/order-saga/shared/clock"
	"github.com/draftea/order-saga/shared/models"
)

// DefaultCheckDelay simulates the latency of an external fraud provider
const DefaultCheckDelay = 10 * time.Millisecond

// Checker scores an order for fraud. A true verdict means the order may be paid.
type Checker interface {
	Check(ctx context.Context, orderID models.OrderID) (bool, error)
}

// StubChecker waits Delay and returns Verdict for every order
type StubChecker struct {
	Delay   time.Duration
	Verdict bool
}

// NewStubChecker creates a checker that approves every order after delay
func NewStubChecker(delay time.Duration) *StubChecker {
	return &StubChecker{Delay: delay, Verdict: true}
}

func (c *StubChecker) Check(ctx context.Context, _ models.OrderID) (bool, error) {
	if err := clock.SleepOrDone(ctx, c.Delay); err != nil {
		return false, err
	}
	return c.Verdict, nil
}
