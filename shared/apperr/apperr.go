// Package apperr holds the fatal error kinds shared by the saga services.
//
// Every error here is an invariant violation or a communication failure: the
// detecting service stops immediately instead of attempting repair.
package apperr

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrUnknownOrder      = errors.New("result for unknown order")
	ErrUnknownCustomer   = errors.New("result for unknown customer")
	ErrDuplicateOrder    = errors.New("order already tracked")
	ErrPendingAtShutdown = errors.New("shutdown with unresolved orders")
	ErrChannelClosed     = errors.New("inbound channel closed")
	ErrFraudCheckFailed  = errors.New("fraud check failed")
)

// Kind classifies err for logs and exit reporting.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrUnknownOrder):
		return "unknown_order"

	case errors.Is(err, ErrUnknownCustomer):
		return "unknown_customer"

	case errors.Is(err, ErrDuplicateOrder):
		return "duplicate_order"

	case errors.Is(err, ErrPendingAtShutdown):
		return "pending_at_shutdown"

	case errors.Is(err, ErrChannelClosed):
		return "channel_closed"

	case errors.Is(err, ErrFraudCheckFailed):
		return "fraud_check_failed"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

// ChannelClosed builds the fatal error for a receive on a channel whose senders are gone.
// If ctx is already done the channel was torn down by cancellation and ctx.Err() is returned instead.
func ChannelClosed(ctx context.Context, service, channel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrapf(ErrChannelClosed, "%s: error receiving on %s", service, channel)
}
