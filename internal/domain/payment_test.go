package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	statuses := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusConfirmed,
		PaymentStatusFailed,
		PaymentStatusRefunded,
	}
	allowed := map[[2]PaymentStatus]bool{
		{PaymentStatusPending, PaymentStatusConfirmed}:  true,
		{PaymentStatusPending, PaymentStatusFailed}:     true,
		{PaymentStatusConfirmed, PaymentStatusRefunded}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]PaymentStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestPaymentStatusTerminal(t *testing.T) {
	assert.False(t, PaymentStatusPending.Terminal())
	assert.False(t, PaymentStatusConfirmed.Terminal())
	assert.True(t, PaymentStatusFailed.Terminal())
	assert.True(t, PaymentStatusRefunded.Terminal())
	assert.False(t, PaymentStatus("LOST").Terminal())
}

func TestNewPendingPayment(t *testing.T) {
	res := &Resource{ID: "r1", OwnerID: "seller", Price: 500}

	p, err := NewPendingPayment("p1", "buyer", res)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, p.Status)
	assert.Equal(t, int64(500), p.Amount)
	assert.Equal(t, "seller", p.RecipientID)
	assert.Nil(t, p.ConfirmedAt)

	_, err = NewPendingPayment("p2", "buyer", &Resource{ID: "free", Price: 0})
	assert.ErrorIs(t, err, ErrFreeResource)

	_, err = NewPendingPayment("p3", "buyer", &Resource{ID: "bad", Price: -1})
	assert.ErrorIs(t, err, ErrInvalidResource)

	_, err = NewPendingPayment("", "buyer", res)
	assert.Error(t, err)
}

func TestNewTransition(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tr, err := NewTransition(&Payment{ID: "p1", Status: PaymentStatusPending}, PaymentStatusConfirmed, at)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, tr.From)
	assert.Equal(t, PaymentStatusConfirmed, tr.To)
	assert.Equal(t, at, tr.At)

	_, err = NewTransition(&Payment{ID: "p1", Status: PaymentStatusPending}, PaymentStatusRefunded, at)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = NewTransition(&Payment{ID: "p1", Status: PaymentStatusFailed}, PaymentStatusConfirmed, at)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestResourceApply(t *testing.T) {
	r := &Resource{Name: "old", Description: "desc", Thread: "t"}
	name := "new"
	u := ResourceUpdate{Name: &name}
	assert.False(t, u.Empty())
	r.Apply(u)
	assert.Equal(t, "new", r.Name)
	assert.Equal(t, "desc", r.Description)
	assert.True(t, ResourceUpdate{}.Empty())
}
