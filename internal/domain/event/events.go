package event

import "time"

const (
	TypePaymentConfirmed = "payment.confirmed"
	TypePaymentFailed    = "payment.failed"
	TypePaymentRefunded  = "payment.refunded"
)

// PaymentEvent is published after a ledger transition. Consumers of
// payment.confirmed grant access to the resource and bump its download
// counter; payment.refunded revokes the grant.
type PaymentEvent struct {
	Type          string    `json:"type"`
	PaymentID     string    `json:"payment_id"`
	BuyerID       string    `json:"buyer_id"`
	RecipientID   string    `json:"recipient_id"`
	ResourceID    string    `json:"resource_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	PaymentIntent string    `json:"payment_intent,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// SellerAccountLinkedEvent is emitted by the account-linking flow once a
// seller finishes onboarding with the processor.
type SellerAccountLinkedEvent struct {
	UserID        string    `json:"user_id"`
	PayoutAccount string    `json:"payout_account"`
	LinkedAt      time.Time `json:"linked_at"`
}
