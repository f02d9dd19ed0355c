package resources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marketplace/internal/domain"
	"marketplace/internal/repository/resources_repo"
)

type Service struct {
	querier   domain.Querier
	resources resources_repo.ResourceRepository
	logger    *zap.Logger
}

func NewService(querier domain.Querier, resources resources_repo.ResourceRepository, logger *zap.Logger) *Service {
	return &Service{querier: querier, resources: resources, logger: logger}
}

func (s *Service) GetResource(ctx context.Context, id string) (*domain.Resource, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrNotFound
	}
	return s.resources.GetByIDTx(ctx, s.querier, id)
}

// LoadResourceWithTeam returns a nil team for team-less resources. A
// resource pointing at a vanished team is treated as team-less.
func (s *Service) LoadResourceWithTeam(ctx context.Context, id string) (*domain.Resource, *domain.Team, error) {
	res, err := s.GetResource(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if res.TeamID == nil {
		return res, nil, nil
	}
	team, err := s.resources.GetTeamTx(ctx, s.querier, *res.TeamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Resource references missing team", zap.String("resource_id", id), zap.String("team_id", *res.TeamID))
			res.TeamID = nil
			return res, nil, nil
		}
		return nil, nil, err
	}
	return res, team, nil
}

func (s *Service) Update(ctx context.Context, res *domain.Resource, update domain.ResourceUpdate) (*domain.Resource, error) {
	if update.Empty() {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrInvalidInput)
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, fmt.Errorf("name must not be blank: %w", domain.ErrInvalidInput)
	}
	updated := *res
	updated.Apply(update)
	if err := s.resources.UpdateTx(ctx, s.querier, &updated); err != nil {
		return nil, err
	}
	s.logger.Info("Resource updated", zap.String("resource_id", res.ID))
	return &updated, nil
}

// Delete removes the resource and, through the foreign key, every payment
// recorded against it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.resources.DeleteTx(ctx, s.querier, id); err != nil {
		return err
	}
	s.logger.Info("Resource deleted", zap.String("resource_id", id))
	return nil
}
