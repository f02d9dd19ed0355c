package resources_repo

import (
	"context"

	"marketplace/internal/domain"
)

type ResourceRepository interface {
	GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.Resource, error)
	UpdateTx(ctx context.Context, querier domain.Querier, resource *domain.Resource) error
	DeleteTx(ctx context.Context, querier domain.Querier, id string) error
	GetTeamTx(ctx context.Context, querier domain.Querier, teamID string) (*domain.Team, error)
}
