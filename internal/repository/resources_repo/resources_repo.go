package resources_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/internal/domain"
)

type resourceRepository struct{}

func NewResourceRepository() *resourceRepository {
	return &resourceRepository{}
}

func (r *resourceRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.Resource, error) {
	query := `
		SELECT id, name, description, thread, owner_id, team_id, price, has_icon, downloads
		FROM resources
		WHERE id = $1
	`
	res := &domain.Resource{}
	var teamID sql.NullString
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&res.ID,
		&res.Name,
		&res.Description,
		&res.Thread,
		&res.OwnerID,
		&teamID,
		&res.Price,
		&res.HasIcon,
		&res.Downloads,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resource %s: %w", id, err)
	}
	if teamID.Valid {
		res.TeamID = &teamID.String
	}
	return res, nil
}

func (r *resourceRepository) UpdateTx(ctx context.Context, querier domain.Querier, resource *domain.Resource) error {
	query := `
		UPDATE resources
		SET name = $1, description = $2, thread = $3
		WHERE id = $4
	`
	res, err := querier.ExecContext(ctx, query, resource.Name, resource.Description, resource.Thread, resource.ID)
	if err != nil {
		return fmt.Errorf("failed to update resource %s: %w", resource.ID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for resource update: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteTx removes the resource. Its payments go with it through the
// ON DELETE CASCADE foreign key.
func (r *resourceRepository) DeleteTx(ctx context.Context, querier domain.Querier, id string) error {
	res, err := querier.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for resource delete: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *resourceRepository) GetTeamTx(ctx context.Context, querier domain.Querier, teamID string) (*domain.Team, error) {
	team := &domain.Team{}
	err := querier.QueryRowContext(ctx, `SELECT id, name FROM teams WHERE id = $1`, teamID).Scan(&team.ID, &team.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team %s: %w", teamID, err)
	}
	return team, nil
}
