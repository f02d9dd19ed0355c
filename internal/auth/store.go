package auth

import (
	"context"

	"marketplace/internal/domain"
	"marketplace/internal/repository/users_repo"
)

// StorePrincipalLoader reads principals straight from the user store.
type StorePrincipalLoader struct {
	querier domain.Querier
	users   users_repo.UserRepository
}

func NewStorePrincipalLoader(querier domain.Querier, users users_repo.UserRepository) *StorePrincipalLoader {
	return &StorePrincipalLoader{querier: querier, users: users}
}

func (l *StorePrincipalLoader) LoadPrincipal(ctx context.Context, userID string) (*domain.Principal, error) {
	return l.users.GetPrincipalTx(ctx, l.querier, userID)
}
