// Package payouts serves sellers their confirmed sales, reports and
// processor balance. Every query is pinned to one recipient.
package payouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"marketplace/internal/domain"
	"marketplace/internal/domain/event"
	"marketplace/internal/repository/sellers_repo"
)

type Ledger interface {
	ListConfirmedByRecipient(ctx context.Context, recipientID string, page int) ([]domain.PaymentSummary, error)
	Report(ctx context.Context, filter domain.PaymentReportFilter) ([]domain.PaymentSummary, error)
}

type Processor interface {
	Balance(ctx context.Context, payoutAccount string) (json.RawMessage, error)
	LoginLink(ctx context.Context, payoutAccount string) (string, error)
}

type Service struct {
	querier   domain.Querier
	sellers   sellers_repo.SellerRepository
	ledger    Ledger
	processor Processor
	timeout   time.Duration
	logger    *zap.Logger
}

func NewService(
	querier domain.Querier,
	sellers sellers_repo.SellerRepository,
	ledger Ledger,
	processor Processor,
	timeout time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		querier:   querier,
		sellers:   sellers,
		ledger:    ledger,
		processor: processor,
		timeout:   timeout,
		logger:    logger,
	}
}

// resolveSeller decides whose sales the caller may read. A caller always
// reads their own; only a global admin may name another seller.
func resolveSeller(caller *domain.Principal, sellerID string) (string, error) {
	if caller == nil {
		return "", domain.ErrUnauthenticated
	}
	if sellerID == "" || sellerID == caller.ID {
		return caller.ID, nil
	}
	if caller.IsAdmin() {
		return sellerID, nil
	}
	return "", domain.ErrForbidden
}

func (s *Service) ListConfirmed(ctx context.Context, caller *domain.Principal, sellerID string, page int) ([]domain.PaymentSummary, error) {
	recipient, err := resolveSeller(caller, sellerID)
	if err != nil {
		return nil, err
	}
	return s.ledger.ListConfirmedByRecipient(ctx, recipient, page)
}

func (s *Service) Report(ctx context.Context, caller *domain.Principal, sellerID string, start, end time.Time, resourceID string) ([]domain.PaymentSummary, error) {
	recipient, err := resolveSeller(caller, sellerID)
	if err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil, fmt.Errorf("report range must satisfy start <= end: %w", domain.ErrInvalidInput)
	}
	return s.ledger.Report(ctx, domain.PaymentReportFilter{
		RecipientID: recipient,
		Start:       start,
		End:         end,
		ResourceID:  resourceID,
	})
}

func (s *Service) Balance(ctx context.Context, caller *domain.Principal, sellerID string) (json.RawMessage, error) {
	recipient, err := resolveSeller(caller, sellerID)
	if err != nil {
		return nil, err
	}
	account, err := s.GetSellerAccount(ctx, recipient)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.processor.Balance(callCtx, account.PayoutAccount)
}

func (s *Service) IsSeller(ctx context.Context, caller *domain.Principal) (bool, error) {
	if caller == nil {
		return false, domain.ErrUnauthenticated
	}
	_, err := s.GetSellerAccount(ctx, caller.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) DashboardLink(ctx context.Context, caller *domain.Principal) (string, error) {
	if caller == nil {
		return "", domain.ErrUnauthenticated
	}
	account, err := s.GetSellerAccount(ctx, caller.ID)
	if err != nil {
		return "", err
	}
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.processor.LoginLink(callCtx, account.PayoutAccount)
}

func (s *Service) GetSellerAccount(ctx context.Context, userID string) (*domain.SellerAccount, error) {
	return s.sellers.GetByUserTx(ctx, s.querier, userID)
}

// LinkSellerAccount records the payout account announced by the
// account-linking flow.
func (s *Service) LinkSellerAccount(ctx context.Context, evt event.SellerAccountLinkedEvent) error {
	if strings.TrimSpace(evt.UserID) == "" || strings.TrimSpace(evt.PayoutAccount) == "" {
		return fmt.Errorf("seller account event needs user_id and payout_account: %w", domain.ErrInvalidInput)
	}
	linkedAt := evt.LinkedAt
	if linkedAt.IsZero() {
		linkedAt = time.Now().UTC()
	}
	if err := s.sellers.UpsertTx(ctx, s.querier, &domain.SellerAccount{
		UserID:        evt.UserID,
		PayoutAccount: evt.PayoutAccount,
		CreatedAt:     linkedAt,
	}); err != nil {
		return err
	}
	s.logger.Info("Seller account linked", zap.String("user_id", evt.UserID))
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
