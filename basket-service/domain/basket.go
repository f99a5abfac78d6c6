package domain

import (
	"github.com/draftea/order-saga/shared/apperr"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

// PendingOrders counts, per customer, the orders the basket issued that have not resolved yet.
// A customer's entry is deleted as soon as its count drops to zero, so counts are always positive.
type PendingOrders struct {
	counts map[models.CustomerID]int
	total  int
}

// NewPendingOrders creates an empty tally
func NewPendingOrders() *PendingOrders {
	return &PendingOrders{
		counts: make(map[models.CustomerID]int),
	}
}

// Issue records one more outstanding order for customerID
func (p *PendingOrders) Issue(customerID models.CustomerID) {
	p.counts[customerID]++
	p.total++
}

// Resolve records that one order for customerID has a result
func (p *PendingOrders) Resolve(customerID models.CustomerID) error {
	count, exists := p.counts[customerID]
	if !exists {
		return errors.Wrapf(apperr.ErrUnknownCustomer, "order result for customer %s", customerID)
	}

	if count == 1 {
		delete(p.counts, customerID)
	} else {
		p.counts[customerID] = count - 1
	}
	p.total--
	return nil
}

// Outstanding returns the number of unresolved orders for customerID
func (p *PendingOrders) Outstanding(customerID models.CustomerID) int {
	return p.counts[customerID]
}

// Len returns the number of customers with unresolved orders
func (p *PendingOrders) Len() int {
	return len(p.counts)
}

// Total returns the number of unresolved orders across all customers
func (p *PendingOrders) Total() int {
	return p.total
}

// Empty reports whether every issued order has resolved
func (p *PendingOrders) Empty() bool {
	return len(p.counts) == 0
}
