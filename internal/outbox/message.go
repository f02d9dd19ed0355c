package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/domain/event"
	"marketplace/internal/util"
)

var eventTypes = map[domain.PaymentStatus]string{
	domain.PaymentStatusConfirmed: event.TypePaymentConfirmed,
	domain.PaymentStatusFailed:    event.TypePaymentFailed,
	domain.PaymentStatusRefunded:  event.TypePaymentRefunded,
}

// NewPaymentEventMessage builds the outbox row announcing tr. The payment id
// is the Kafka key so the events of one payment stay ordered on a partition.
func NewPaymentEventMessage(p *domain.Payment, tr domain.Transition, topic string) (*domain.OutboxMessage, error) {
	eventType, ok := eventTypes[tr.To]
	if !ok {
		return nil, fmt.Errorf("no event for status %s", tr.To)
	}
	intent := tr.PaymentIntent
	if intent == "" {
		intent = p.PaymentIntent
	}
	payload, err := json.Marshal(event.PaymentEvent{
		Type:          eventType,
		PaymentID:     p.ID,
		BuyerID:       p.BuyerID,
		RecipientID:   p.RecipientID,
		ResourceID:    p.ResourceID,
		Amount:        p.Amount,
		Status:        string(tr.To),
		PaymentIntent: intent,
		OccurredAt:    tr.At,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payment event: %w", err)
	}
	return &domain.OutboxMessage{
		ID:          util.GenerateUUID(),
		AggregateID: p.ID,
		MessageType: eventType,
		Topic:       topic,
		Key:         p.ID,
		Payload:     payload,
		Status:      domain.OutboxStatusPending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
