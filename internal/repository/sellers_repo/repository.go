package sellers_repo

import (
	"context"

	"marketplace/internal/domain"
)

type SellerRepository interface {
	GetByUserTx(ctx context.Context, querier domain.Querier, userID string) (*domain.SellerAccount, error)
	UpsertTx(ctx context.Context, querier domain.Querier, account *domain.SellerAccount) error
}
