package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
	"marketplace/internal/domain/event"
)

func TestNewPaymentEventMessage(t *testing.T) {
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	p := &domain.Payment{
		ID:          "pay-1",
		BuyerID:     "buyer",
		RecipientID: "seller",
		ResourceID:  "res-1",
		Amount:      500,
		Status:      domain.PaymentStatusPending,
	}
	tr, err := domain.NewTransition(p, domain.PaymentStatusConfirmed, at)
	require.NoError(t, err)
	tr.PaymentIntent = "pi_1"

	msg, err := NewPaymentEventMessage(p, tr, "payment-events")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", msg.Key)
	assert.Equal(t, "pay-1", msg.AggregateID)
	assert.Equal(t, "payment-events", msg.Topic)
	assert.Equal(t, event.TypePaymentConfirmed, msg.MessageType)
	assert.Equal(t, domain.OutboxStatusPending, msg.Status)
	assert.NotEmpty(t, msg.ID)

	var evt event.PaymentEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &evt))
	assert.Equal(t, event.TypePaymentConfirmed, evt.Type)
	assert.Equal(t, "CONFIRMED", evt.Status)
	assert.Equal(t, "pi_1", evt.PaymentIntent)
	assert.Equal(t, int64(500), evt.Amount)
	assert.True(t, at.Equal(evt.OccurredAt))
}

func TestNewPaymentEventMessageFallsBackToStoredIntent(t *testing.T) {
	p := &domain.Payment{ID: "pay-1", PaymentIntent: "pi_stored", Status: domain.PaymentStatusConfirmed}
	tr, err := domain.NewTransition(p, domain.PaymentStatusRefunded, time.Now())
	require.NoError(t, err)

	msg, err := NewPaymentEventMessage(p, tr, "payment-events")
	require.NoError(t, err)
	assert.Equal(t, event.TypePaymentRefunded, msg.MessageType)

	var evt event.PaymentEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &evt))
	assert.Equal(t, "pi_stored", evt.PaymentIntent)
}

func TestNewPaymentEventMessageRejectsPending(t *testing.T) {
	_, err := NewPaymentEventMessage(&domain.Payment{ID: "pay-1"}, domain.Transition{To: domain.PaymentStatusPending}, "t")
	assert.Error(t, err)
}
