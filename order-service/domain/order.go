package domain

import (
	"github.com/draftea/order-saga/shared/apperr"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

// PendingPayments maps orders awaiting a payment outcome to the customer that placed them.
// Owned by the order service goroutine.
type PendingPayments struct {
	orders   map[models.OrderID]models.CustomerID
	tracked  int
	resolved int
	maxLen   int
}

// NewPendingPayments creates an empty set of pending payments
func NewPendingPayments() *PendingPayments {
	return &PendingPayments{
		orders: make(map[models.OrderID]models.CustomerID),
	}
}

// Track records that orderID was sent for payment on behalf of customerID
func (p *PendingPayments) Track(orderID models.OrderID, customerID models.CustomerID) error {
	if _, exists := p.orders[orderID]; exists {
		return errors.Wrapf(apperr.ErrDuplicateOrder, "order %s", orderID)
	}

	p.orders[orderID] = customerID
	p.tracked++
	if len(p.orders) > p.maxLen {
		p.maxLen = len(p.orders)
	}
	return nil
}

// Resolve removes orderID and returns the customer it belonged to
func (p *PendingPayments) Resolve(orderID models.OrderID) (models.CustomerID, error) {
	customerID, exists := p.orders[orderID]
	if !exists {
		return "", errors.Wrapf(apperr.ErrUnknownOrder, "payment result for order %s", orderID)
	}

	delete(p.orders, orderID)
	p.resolved++
	return customerID, nil
}

// Len returns the number of orders awaiting payment. It always equals Tracked() - Resolved().
func (p *PendingPayments) Len() int {
	return len(p.orders)
}

// Empty reports whether no order awaits payment
func (p *PendingPayments) Empty() bool {
	return len(p.orders) == 0
}

// Tracked returns how many payment requests were recorded
func (p *PendingPayments) Tracked() int {
	return p.tracked
}

// Resolved returns how many payment results were matched
func (p *PendingPayments) Resolved() int {
	return p.resolved
}

// MaxLen returns the high-water mark of pending payments
func (p *PendingPayments) MaxLen() int {
	return p.maxLen
}

// ExistingCustomers is the set of customers already classified as non-new.
// Owned by the order service goroutine.
type ExistingCustomers struct {
	customers map[models.CustomerID]struct{}
}

// NewExistingCustomers creates an empty customer set
func NewExistingCustomers() *ExistingCustomers {
	return &ExistingCustomers{
		customers: make(map[models.CustomerID]struct{}),
	}
}

// Classify returns the customer type used to route an order.
//
// A customer seen for the first time is New and is remembered right away, before
// its order resolves. A second order placed while the first is still in flight is
// therefore classified Existing and skips fraud review.
func (c *ExistingCustomers) Classify(customerID models.CustomerID) events.CustomerType {
	if c.Contains(customerID) {
		return events.CustomerTypeExisting
	}
	c.customers[customerID] = struct{}{}
	return events.CustomerTypeNew
}

// Remember marks the customer as existing. It is idempotent.
func (c *ExistingCustomers) Remember(customerID models.CustomerID) {
	c.customers[customerID] = struct{}{}
}

// Contains reports whether the customer was seen before
func (c *ExistingCustomers) Contains(customerID models.CustomerID) bool {
	_, ok := c.customers[customerID]
	return ok
}

// Len returns the number of known customers
func (c *ExistingCustomers) Len() int {
	return len(c.customers)
}
