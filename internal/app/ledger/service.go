// Package ledger is the only writer of payment rows. Status changes go
// through Apply, which pairs the conditional update with its outbox event in
// one transaction.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketplace/internal/domain"
	"marketplace/internal/infrastructure/database"
	"marketplace/internal/outbox"
	"marketplace/internal/repository/outbox_repo"
	"marketplace/internal/repository/payments_repo"
)

const PageSize = 5

type Service struct {
	db       *sql.DB
	payments payments_repo.PaymentRepository
	outbox   outbox_repo.OutboxRepository
	topic    string
	logger   *zap.Logger
}

func NewService(
	db *sql.DB,
	payments payments_repo.PaymentRepository,
	outboxRepo outbox_repo.OutboxRepository,
	topic string,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:       db,
		payments: payments,
		outbox:   outboxRepo,
		topic:    topic,
		logger:   logger,
	}
}

func (s *Service) Create(ctx context.Context, p *domain.Payment) error {
	return s.payments.CreateTx(ctx, s.db, p)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Payment, error) {
	return s.payments.GetByIDTx(ctx, s.db, id)
}

func (s *Service) FindBySessionRef(ctx context.Context, ref string) (*domain.Payment, error) {
	return s.payments.GetBySessionRefTx(ctx, s.db, ref)
}

func (s *Service) FindByPaymentIntent(ctx context.Context, intentID string) (*domain.Payment, error) {
	return s.payments.GetByPaymentIntentTx(ctx, s.db, intentID)
}

func (s *Service) HasConfirmed(ctx context.Context, buyerID, resourceID string) (bool, error) {
	return s.payments.HasConfirmedTx(ctx, s.db, buyerID, resourceID)
}

func (s *Service) AttachSession(ctx context.Context, paymentID, ref string) error {
	return s.payments.AttachSessionTx(ctx, s.db, paymentID, ref)
}

// Apply performs tr against p. It returns false, nil when the stored status
// no longer equals tr.From, meaning a concurrent or earlier delivery already
// moved the payment.
func (s *Service) Apply(ctx context.Context, p *domain.Payment, tr domain.Transition) (bool, error) {
	if !domain.CanTransition(tr.From, tr.To) {
		return false, fmt.Errorf("payment %s: %s -> %s: %w", tr.PaymentID, tr.From, tr.To, domain.ErrInvalidTransition)
	}
	msg, err := outbox.NewPaymentEventMessage(p, tr, s.topic)
	if err != nil {
		return false, err
	}

	applied := false
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		ok, err := s.payments.TransitionTx(ctx, tx, tr)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := s.outbox.CreateMessageTx(ctx, tx, msg); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("apply transition for payment %s: %w", tr.PaymentID, err)
	}

	if applied {
		s.logger.Info("Payment transitioned",
			zap.String("payment_id", tr.PaymentID),
			zap.String("from", string(tr.From)),
			zap.String("to", string(tr.To)),
		)
	}
	return applied, nil
}

func offsetFor(page int) (int, error) {
	if page < 1 {
		return 0, fmt.Errorf("page must be >= 1: %w", domain.ErrInvalidInput)
	}
	return (page - 1) * PageSize, nil
}

func (s *Service) ListConfirmedByRecipient(ctx context.Context, recipientID string, page int) ([]domain.PaymentSummary, error) {
	offset, err := offsetFor(page)
	if err != nil {
		return nil, err
	}
	return s.payments.ListConfirmedByRecipientTx(ctx, s.db, recipientID, PageSize, offset)
}

func (s *Service) Report(ctx context.Context, filter domain.PaymentReportFilter) ([]domain.PaymentSummary, error) {
	return s.payments.ReportByRecipientTx(ctx, s.db, filter)
}

func (s *Service) ListByBuyer(ctx context.Context, buyerID string, page int) ([]domain.PaymentSummary, error) {
	offset, err := offsetFor(page)
	if err != nil {
		return nil, err
	}
	return s.payments.ListByBuyerTx(ctx, s.db, buyerID, PageSize, offset)
}

func (s *Service) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error) {
	return s.payments.ListStalePendingTx(ctx, s.db, olderThan, limit)
}
