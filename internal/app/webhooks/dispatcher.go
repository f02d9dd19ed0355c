// Package webhooks maps verified processor events onto ledger transitions.
package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketplace/internal/domain"
	"marketplace/internal/webhook"
)

// ErrRetryable marks failures where the ledger could not be read or
// written. The processor should redeliver the event.
var ErrRetryable = errors.New("retryable webhook failure")

const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncFailed    = "checkout.session.async_payment_failed"
	EventCheckoutExpired        = "checkout.session.expired"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded         = "charge.refunded"
)

const (
	paymentStatusUnpaid = "unpaid"
	metadataPaymentID   = "payment_id"
)

type Outcome string

const (
	OutcomeApplied           Outcome = "applied"
	OutcomeAlreadyApplied    Outcome = "already_applied"
	OutcomeIgnored           Outcome = "ignored"
	OutcomeNotFound          Outcome = "not_found"
	OutcomeInvalidTransition Outcome = "invalid_transition"
	OutcomeMalformed         Outcome = "malformed"
)

type Result struct {
	Outcome   Outcome
	PaymentID string
}

type Ledger interface {
	Get(ctx context.Context, id string) (*domain.Payment, error)
	FindBySessionRef(ctx context.Context, ref string) (*domain.Payment, error)
	FindByPaymentIntent(ctx context.Context, intentID string) (*domain.Payment, error)
	Apply(ctx context.Context, p *domain.Payment, tr domain.Transition) (bool, error)
}

type Dispatcher struct {
	ledger Ledger
	now    func() time.Time
	logger *zap.Logger
}

func NewDispatcher(ledger Ledger, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		ledger: ledger,
		now:    time.Now,
		logger: logger,
	}
}

// refs are the identifiers an event carries, tried in this order.
type refs struct {
	session   string
	intent    string
	paymentID string
}

type action struct {
	target domain.PaymentStatus
	refs   refs
}

// Dispatch applies evt to the ledger. Only a wrapped ErrRetryable should be
// surfaced to the processor as a failure; every other outcome is an
// acknowledgement.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *webhook.Event) (Result, error) {
	log := d.logger.With(zap.String("event_id", evt.ID), zap.String("event_type", evt.Type))

	act, ok, err := mapEvent(evt)
	if err != nil {
		log.Warn("Malformed webhook object, acknowledging", zap.Error(err))
		return Result{Outcome: OutcomeMalformed}, nil
	}
	if !ok {
		log.Debug("Webhook event needs no ledger change")
		return Result{Outcome: OutcomeIgnored}, nil
	}

	payment, err := d.lookup(ctx, act.refs)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("No payment matches webhook event",
				zap.String("session", act.refs.session),
				zap.String("payment_intent", act.refs.intent),
				zap.String("payment_id", act.refs.paymentID),
			)
			return Result{Outcome: OutcomeNotFound}, nil
		}
		log.Error("Failed to look up payment for webhook", zap.Error(err))
		return Result{}, fmt.Errorf("%w: lookup: %v", ErrRetryable, err)
	}
	log = log.With(zap.String("payment_id", payment.ID))

	if payment.Status == act.target {
		log.Info("Webhook transition already applied", zap.String("status", string(payment.Status)))
		return Result{Outcome: OutcomeAlreadyApplied, PaymentID: payment.ID}, nil
	}
	tr, err := domain.NewTransition(payment, act.target, d.now())
	if err != nil {
		log.Warn("Webhook requests an illegal transition, acknowledging", zap.Error(err))
		return Result{Outcome: OutcomeInvalidTransition, PaymentID: payment.ID}, nil
	}
	tr.PaymentIntent = act.refs.intent
	tr.SessionRef = act.refs.session

	applied, err := d.ledger.Apply(ctx, payment, tr)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			log.Warn("Ledger rejected webhook transition", zap.Error(err))
			return Result{Outcome: OutcomeInvalidTransition, PaymentID: payment.ID}, nil
		}
		log.Error("Failed to apply webhook transition", zap.Error(err))
		return Result{}, fmt.Errorf("%w: apply: %v", ErrRetryable, err)
	}
	if !applied {
		log.Info("Payment moved concurrently, nothing to apply")
		return Result{Outcome: OutcomeAlreadyApplied, PaymentID: payment.ID}, nil
	}
	log.Info("Webhook transition applied",
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
	)
	return Result{Outcome: OutcomeApplied, PaymentID: payment.ID}, nil
}

func (d *Dispatcher) lookup(ctx context.Context, r refs) (*domain.Payment, error) {
	candidates := []struct {
		value string
		find  func(context.Context, string) (*domain.Payment, error)
	}{
		{r.session, d.ledger.FindBySessionRef},
		{r.intent, d.ledger.FindByPaymentIntent},
		{r.paymentID, d.ledger.Get},
	}
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		p, err := c.find(ctx, c.value)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrNotFound
}

func mapEvent(evt *webhook.Event) (action, bool, error) {
	switch evt.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncSucceeded:
		var s webhook.CheckoutSession
		if err := decodeObject(evt, &s); err != nil {
			return action{}, false, err
		}
		if evt.Type == EventCheckoutCompleted && s.PaymentStatus == paymentStatusUnpaid {
			return action{}, false, nil
		}
		return action{target: domain.PaymentStatusConfirmed, refs: sessionRefs(s)}, true, nil

	case EventCheckoutAsyncFailed, EventCheckoutExpired:
		var s webhook.CheckoutSession
		if err := decodeObject(evt, &s); err != nil {
			return action{}, false, err
		}
		return action{target: domain.PaymentStatusFailed, refs: sessionRefs(s)}, true, nil

	case EventPaymentIntentFailed:
		var pi webhook.PaymentIntent
		if err := decodeObject(evt, &pi); err != nil {
			return action{}, false, err
		}
		return action{
			target: domain.PaymentStatusFailed,
			refs:   refs{intent: pi.ID, paymentID: pi.Metadata[metadataPaymentID]},
		}, true, nil

	case EventChargeRefunded:
		var ch webhook.Charge
		if err := decodeObject(evt, &ch); err != nil {
			return action{}, false, err
		}
		if !ch.FullyRefunded() {
			return action{}, false, nil
		}
		return action{
			target: domain.PaymentStatusRefunded,
			refs:   refs{intent: ch.PaymentIntent, paymentID: ch.Metadata[metadataPaymentID]},
		}, true, nil
	}
	return action{}, false, nil
}

func sessionRefs(s webhook.CheckoutSession) refs {
	paymentID := s.ClientReferenceID
	if paymentID == "" {
		paymentID = s.Metadata[metadataPaymentID]
	}
	return refs{session: s.ID, intent: s.PaymentIntent, paymentID: paymentID}
}

func decodeObject(evt *webhook.Event, dst any) error {
	if len(evt.Data.Object) == 0 {
		return errors.New("event has no data.object")
	}
	if err := json.Unmarshal(evt.Data.Object, dst); err != nil {
		return fmt.Errorf("decode %s object: %w", evt.Type, err)
	}
	return nil
}
