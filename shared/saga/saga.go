// Package saga wires the basket, order, payment and fraud services into one
// choreography. There is no central orchestrator: each service reacts to the
// messages on its inbound edges and the Basket starts the shutdown cascade.
package saga

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnknownVariant = errors.New("unknown saga variant")
	ErrInvalidConfig  = errors.New("invalid saga config")
)

// Variant selects which services take part in the choreography
type Variant string

const (
	// VariantMinimal runs Basket, Order and Payment. Payment authorizes every order.
	VariantMinimal Variant = "minimal"
	// VariantExtended adds the Fraud service behind Payment for new customers.
	VariantExtended Variant = "extended"
)

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantMinimal, VariantExtended:
		return v, nil
	default:
		return "", errors.Wrapf(ErrUnknownVariant, "%q", s)
	}
}

func (v Variant) String() string {
	return string(v)
}

// Status of a choreography run
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)
