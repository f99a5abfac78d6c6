package models

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ID represents a unique identifier
type ID string

// GenerateUUID creates a new UUID
func GenerateUUID() ID {
	return ID(uuid.New().String())
}

// NewID creates an ID from string
func NewID(id string) (ID, error) {
	_, err := uuid.Parse(id)
	if err != nil {
		return "", errors.Wrapf(err, "invalid id %q", id)
	}
	return ID(id), nil
}

// String returns string representation
func (id ID) String() string {
	return string(id)
}

// CustomerID identifies a simulated customer. It is minted once per customer by the basket.
type CustomerID ID

// NewCustomerID creates a new random customer identifier
func NewCustomerID() CustomerID {
	return CustomerID(GenerateUUID())
}

// ParseCustomerID validates and converts a string into a CustomerID
func ParseCustomerID(s string) (CustomerID, error) {
	id, err := NewID(s)
	if err != nil {
		return "", errors.Wrap(err, "invalid customer ID")
	}
	return CustomerID(id), nil
}

func (id CustomerID) String() string {
	return string(id)
}

// OrderID identifies an accepted order. Only the order service mints them.
type OrderID ID

// NewOrderID creates a new random order identifier
func NewOrderID() OrderID {
	return OrderID(GenerateUUID())
}

// ParseOrderID validates and converts a string into an OrderID
func ParseOrderID(s string) (OrderID, error) {
	id, err := NewID(s)
	if err != nil {
		return "", errors.Wrap(err, "invalid order ID")
	}
	return OrderID(id), nil
}

func (id OrderID) String() string {
	return string(id)
}
