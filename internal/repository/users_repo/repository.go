package users_repo

import (
	"context"

	"marketplace/internal/domain"
)

type UserRepository interface {
	GetPrincipalTx(ctx context.Context, querier domain.Querier, userID string) (*domain.Principal, error)
}
