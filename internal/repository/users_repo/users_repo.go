package users_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/internal/domain"
)

type userRepository struct{}

func NewUserRepository() *userRepository {
	return &userRepository{}
}

// GetPrincipalTx loads the user's global role and every team membership.
// Email and password never leave this query.
func (r *userRepository) GetPrincipalTx(ctx context.Context, querier domain.Querier, userID string) (*domain.Principal, error) {
	p := &domain.Principal{}
	var role string
	err := querier.QueryRowContext(ctx, `SELECT id, username, role FROM users WHERE id = $1`, userID).
		Scan(&p.ID, &p.Username, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	if p.Role, err = domain.ParseRole(role); err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}

	rows, err := querier.QueryContext(ctx, `SELECT team_id, role FROM team_members WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team memberships of %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.TeamMembership
		var teamRole string
		if err := rows.Scan(&m.TeamID, &teamRole); err != nil {
			return nil, fmt.Errorf("failed to scan team membership: %w", err)
		}
		if m.Role, err = domain.ParseRole(teamRole); err != nil {
			return nil, fmt.Errorf("team %s membership of %s: %w", m.TeamID, userID, err)
		}
		p.Teams = append(p.Teams, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team memberships: %w", err)
	}
	return p, nil
}
