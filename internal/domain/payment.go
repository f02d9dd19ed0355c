package domain

import (
	"errors"
	"fmt"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// paymentTransitions is the whole state graph. Anything not listed here is
// rejected.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusConfirmed, PaymentStatusFailed},
	PaymentStatusConfirmed: {PaymentStatusRefunded},
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) Terminal() bool {
	return s.Valid() && len(paymentTransitions[s]) == 0
}

func CanTransition(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Payment struct {
	ID              string
	BuyerID         string
	RecipientID     string
	ResourceID      string
	Amount          int64
	ExternalSession string
	PaymentIntent   string
	Status          PaymentStatus
	CreatedAt       time.Time
	ConfirmedAt     *time.Time
	UpdatedAt       time.Time
}

func NewPendingPayment(id, buyerID string, resource *Resource) (*Payment, error) {
	if id == "" || buyerID == "" || resource == nil {
		return nil, errors.New("invalid payment data")
	}
	if err := resource.CheckPurchasable(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Payment{
		ID:          id,
		BuyerID:     buyerID,
		RecipientID: resource.OwnerID,
		ResourceID:  resource.ID,
		Amount:      resource.Price,
		Status:      PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Transition is a conditional status change: it applies only while the
// stored status still equals From.
type Transition struct {
	PaymentID     string
	From          PaymentStatus
	To            PaymentStatus
	At            time.Time
	PaymentIntent string
	SessionRef    string
}

func NewTransition(p *Payment, to PaymentStatus, at time.Time) (Transition, error) {
	if !CanTransition(p.Status, to) {
		return Transition{}, fmt.Errorf("payment %s: %s -> %s: %w", p.ID, p.Status, to, ErrInvalidTransition)
	}
	return Transition{
		PaymentID: p.ID,
		From:      p.Status,
		To:        to,
		At:        at.UTC(),
	}, nil
}

type BuyerIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PaymentSummary is a ledger row joined with its resource name and a buyer
// identity stripped of email, password and role.
type PaymentSummary struct {
	Payment
	ResourceName string
	Buyer        BuyerIdentity
}

type PaymentReportFilter struct {
	RecipientID string
	Start       time.Time
	End         time.Time
	ResourceID  string
}
