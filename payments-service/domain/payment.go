package domain

import (
	"context"

	"github.com/draftea/order-saga/shared/apperr"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

// Route is the decision taken for an incoming payment request
type Route string

const (
	// RouteAuthorize settles the payment immediately through the gateway
	RouteAuthorize Route = "authorize"
	// RouteFraudReview defers the payment until the fraud service answers
	RouteFraudReview Route = "fraud_review"
)

// RouteFor decides how a payment for the given customer type is processed.
// Without a fraud service every order is immediately payable.
func RouteFor(customerType events.CustomerType, fraudReview bool) Route {
	if fraudReview && customerType == events.CustomerTypeNew {
		return RouteFraudReview
	}
	return RouteAuthorize
}

// AwaitingFraudCheck is the set of orders currently out for fraud review.
// Owned by the payment service goroutine.
type AwaitingFraudCheck struct {
	orders map[models.OrderID]struct{}
	added  int
}

// NewAwaitingFraudCheck creates an empty set
func NewAwaitingFraudCheck() *AwaitingFraudCheck {
	return &AwaitingFraudCheck{
		orders: make(map[models.OrderID]struct{}),
	}
}

// Add records that orderID was sent for fraud review
func (a *AwaitingFraudCheck) Add(orderID models.OrderID) error {
	if _, exists := a.orders[orderID]; exists {
		return errors.Wrapf(apperr.ErrDuplicateOrder, "order %s already awaiting fraud check", orderID)
	}
	a.orders[orderID] = struct{}{}
	a.added++
	return nil
}

// Remove takes orderID out of review once its verdict arrived
func (a *AwaitingFraudCheck) Remove(orderID models.OrderID) error {
	if _, exists := a.orders[orderID]; !exists {
		return errors.Wrapf(apperr.ErrUnknownOrder, "fraud check result for order %s", orderID)
	}
	delete(a.orders, orderID)
	return nil
}

// Contains reports whether orderID is out for review
func (a *AwaitingFraudCheck) Contains(orderID models.OrderID) bool {
	_, ok := a.orders[orderID]
	return ok
}

// Len returns the number of orders out for review
func (a *AwaitingFraudCheck) Len() int {
	return len(a.orders)
}

// Added returns how many orders were ever sent for review
func (a *AwaitingFraudCheck) Added() int {
	return a.added
}

// Gateway authorizes payments for orders that need no fraud review
type Gateway interface {
	Authorize(ctx context.Context, orderID models.OrderID) bool
}

// StubGateway answers every authorization with the same verdict
type StubGateway struct {
	Approve bool
}

// NewStubGateway creates a gateway that approves every payment
func NewStubGateway() *StubGateway {
	return &StubGateway{Approve: true}
}

func (g *StubGateway) Authorize(_ context.Context, _ models.OrderID) bool {
	return g.Approve
}
