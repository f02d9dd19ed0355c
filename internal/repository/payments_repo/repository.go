package payments_repo

import (
	"context"
	"time"

	"marketplace/internal/domain"
)

type PaymentRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, payment *domain.Payment) error
	GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.Payment, error)
	GetBySessionRefTx(ctx context.Context, querier domain.Querier, ref string) (*domain.Payment, error)
	GetByPaymentIntentTx(ctx context.Context, querier domain.Querier, intentID string) (*domain.Payment, error)
	HasConfirmedTx(ctx context.Context, querier domain.Querier, buyerID, resourceID string) (bool, error)
	AttachSessionTx(ctx context.Context, querier domain.Querier, id, ref string) error
	TransitionTx(ctx context.Context, querier domain.Querier, tr domain.Transition) (bool, error)
	ListConfirmedByRecipientTx(ctx context.Context, querier domain.Querier, recipientID string, limit, offset int) ([]domain.PaymentSummary, error)
	ReportByRecipientTx(ctx context.Context, querier domain.Querier, filter domain.PaymentReportFilter) ([]domain.PaymentSummary, error)
	ListByBuyerTx(ctx context.Context, querier domain.Querier, buyerID string, limit, offset int) ([]domain.PaymentSummary, error)
	ListStalePendingTx(ctx context.Context, querier domain.Querier, createdBefore time.Time, limit int) ([]domain.Payment, error)
}
