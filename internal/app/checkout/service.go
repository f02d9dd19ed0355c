package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketplace/internal/domain"
	"marketplace/internal/infrastructure/stripe"
	"marketplace/internal/util"
)

type Ledger interface {
	Create(ctx context.Context, p *domain.Payment) error
	Get(ctx context.Context, id string) (*domain.Payment, error)
	HasConfirmed(ctx context.Context, buyerID, resourceID string) (bool, error)
	AttachSession(ctx context.Context, paymentID, ref string) error
	ListByBuyer(ctx context.Context, buyerID string, page int) ([]domain.PaymentSummary, error)
}

type ResourceReader interface {
	GetResource(ctx context.Context, id string) (*domain.Resource, error)
}

type SellerReader interface {
	GetSellerAccount(ctx context.Context, userID string) (*domain.SellerAccount, error)
}

type Processor interface {
	CreateCheckoutSession(ctx context.Context, p stripe.SessionParams) (*stripe.Session, error)
}

type Options struct {
	Currency           string
	SuccessURL         string
	CancelURL          string
	PlatformFeePercent int
	ProcessorTimeout   time.Duration
}

type Initiated struct {
	PaymentID   string `json:"payment_id"`
	SessionRef  string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

type Service struct {
	ledger    Ledger
	resources ResourceReader
	sellers   SellerReader
	processor Processor
	opts      Options
	logger    *zap.Logger
}

func NewService(ledger Ledger, resources ResourceReader, sellers SellerReader, processor Processor, opts Options, logger *zap.Logger) *Service {
	return &Service{
		ledger:    ledger,
		resources: resources,
		sellers:   sellers,
		processor: processor,
		opts:      opts,
		logger:    logger,
	}
}

// Initiate opens a purchase of resourceID for buyer. The Payment row is
// written PENDING before the processor is called and stays PENDING if that
// call or the follow-up attach fails.
func (s *Service) Initiate(ctx context.Context, buyer *domain.Principal, resourceID string) (*Initiated, error) {
	if buyer == nil {
		return nil, domain.ErrUnauthenticated
	}
	log := s.logger.With(zap.String("buyer_id", buyer.ID), zap.String("resource_id", resourceID))

	resource, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidResource
		}
		return nil, fmt.Errorf("load resource %s: %w", resourceID, err)
	}
	if err := resource.CheckPurchasable(); err != nil {
		return nil, err
	}

	owned, err := s.ledger.HasConfirmed(ctx, buyer.ID, resource.ID)
	if err != nil {
		return nil, fmt.Errorf("check ownership: %w", err)
	}
	if owned {
		log.Info("Checkout rejected, resource already owned")
		return nil, domain.ErrAlreadyOwned
	}

	seller, err := s.sellers.GetSellerAccount(ctx, resource.OwnerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Info("Checkout rejected, seller has no payout account", zap.String("seller_id", resource.OwnerID))
			return nil, domain.ErrSellerUnavailable
		}
		return nil, fmt.Errorf("load seller account: %w", err)
	}

	payment, err := domain.NewPendingPayment(util.GenerateUUID(), buyer.ID, resource)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create pending payment: %w", err)
	}
	log = log.With(zap.String("payment_id", payment.ID))

	callCtx := ctx
	if s.opts.ProcessorTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.ProcessorTimeout)
		defer cancel()
	}
	session, err := s.processor.CreateCheckoutSession(callCtx, stripe.SessionParams{
		PaymentID:     payment.ID,
		ResourceName:  resource.Name,
		Amount:        payment.Amount,
		Currency:      s.opts.Currency,
		FeeAmount:     PlatformFee(payment.Amount, s.opts.PlatformFeePercent),
		PayoutAccount: seller.PayoutAccount,
		SuccessURL:    s.opts.SuccessURL,
		CancelURL:     s.opts.CancelURL,
	})
	if err != nil {
		log.Error("Processor session request failed, payment left pending", zap.Error(err))
		if errors.Is(err, domain.ErrUpstreamFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}

	if err := s.ledger.AttachSession(ctx, payment.ID, session.ID); err != nil {
		log.Error("Failed to persist session reference", zap.String("session", session.ID), zap.Error(err))
		return nil, fmt.Errorf("attach session %s: %w", session.ID, err)
	}

	log.Info("Checkout session created", zap.String("session", session.ID), zap.Int64("amount", payment.Amount))
	return &Initiated{
		PaymentID:   payment.ID,
		SessionRef:  session.ID,
		RedirectURL: session.URL,
	}, nil
}

// Status returns the payment to its buyer, its recipient or a global admin.
// Anyone else gets ErrNotFound so payment ids cannot be probed.
func (s *Service) Status(ctx context.Context, caller *domain.Principal, paymentID string) (*domain.Payment, error) {
	if caller == nil {
		return nil, domain.ErrUnauthenticated
	}
	payment, err := s.ledger.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.BuyerID != caller.ID && payment.RecipientID != caller.ID && !caller.IsAdmin() {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}

func (s *Service) History(ctx context.Context, buyer *domain.Principal, page int) ([]domain.PaymentSummary, error) {
	if buyer == nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.ledger.ListByBuyer(ctx, buyer.ID, page)
}

// PlatformFee is percent of amount in minor units, rounded down.
func PlatformFee(amount int64, percent int) int64 {
	if percent <= 0 || amount <= 0 {
		return 0
	}
	return amount * int64(percent) / 100
}
