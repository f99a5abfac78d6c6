package domain

import (
	"testing"

	"github.com/draftea/order-saga/shared/apperr"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingPayments_TrackAndResolve(t *testing.T) {
	p := NewPendingPayments()
	customer := models.NewCustomerID()
	first, second := models.NewOrderID(), models.NewOrderID()

	require.NoError(t, p.Track(first, customer))
	require.NoError(t, p.Track(second, customer))
	assert.Equal(t, 2, p.Len())
	assert.False(t, p.Empty())

	got, err := p.Resolve(first)
	require.NoError(t, err)
	assert.Equal(t, customer, got)
	assert.Equal(t, 1, p.Len())

	got, err = p.Resolve(second)
	require.NoError(t, err)
	assert.Equal(t, customer, got)
	assert.True(t, p.Empty())
	assert.Equal(t, 2, p.MaxLen())
}

func TestPendingPayments_LenEqualsSentMinusReceived(t *testing.T) {
	p := NewPendingPayments()
	ids := make([]models.OrderID, 0, 10)

	for i := 0; i < 10; i++ {
		id := models.NewOrderID()
		ids = append(ids, id)
		require.NoError(t, p.Track(id, models.NewCustomerID()))
		assert.Equal(t, p.Tracked()-p.Resolved(), p.Len())

		if i%3 == 2 {
			_, err := p.Resolve(ids[0])
			require.NoError(t, err)
			ids = ids[1:]
			assert.Equal(t, p.Tracked()-p.Resolved(), p.Len())
		}
	}

	for _, id := range ids {
		_, err := p.Resolve(id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p.Len(), 0)
		assert.Equal(t, p.Tracked()-p.Resolved(), p.Len())
	}
	assert.True(t, p.Empty())
}

func TestPendingPayments_UnknownOrderIsFatal(t *testing.T) {
	p := NewPendingPayments()

	_, err := p.Resolve(models.NewOrderID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnknownOrder))

	id := models.NewOrderID()
	require.NoError(t, p.Track(id, models.NewCustomerID()))
	_, err = p.Resolve(id)
	require.NoError(t, err)

	_, err = p.Resolve(id)
	assert.True(t, errors.Is(err, apperr.ErrUnknownOrder), "resolving twice must fail")
}

func TestPendingPayments_DuplicateTrack(t *testing.T) {
	p := NewPendingPayments()
	id := models.NewOrderID()

	require.NoError(t, p.Track(id, models.NewCustomerID()))
	err := p.Track(id, models.NewCustomerID())
	assert.True(t, errors.Is(err, apperr.ErrDuplicateOrder))
	assert.Equal(t, 1, p.Len())
}

func TestExistingCustomers_PreemptiveClassification(t *testing.T) {
	c := NewExistingCustomers()
	alice, bob := models.NewCustomerID(), models.NewCustomerID()

	assert.Equal(t, events.CustomerTypeNew, c.Classify(alice))
	// Inserted at routing time, before any payment result.
	assert.True(t, c.Contains(alice))
	assert.Equal(t, events.CustomerTypeExisting, c.Classify(alice))

	assert.False(t, c.Contains(bob))
	c.Remember(bob)
	c.Remember(bob)
	assert.Equal(t, events.CustomerTypeExisting, c.Classify(bob))
	assert.Equal(t, 2, c.Len())
}
