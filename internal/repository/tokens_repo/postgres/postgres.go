package postgres

import (
	"context"
	"fmt"

	"marketplace/internal/domain"
)

type TokenSource struct {
	querier domain.Querier
}

func NewTokenSource(querier domain.Querier) *TokenSource {
	return &TokenSource{querier: querier}
}

func (s *TokenSource) LoadTokens(ctx context.Context) (map[string]string, error) {
	rows, err := s.querier.QueryContext(ctx, `SELECT token, user_id FROM auth_tokens`)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth tokens: %w", err)
	}
	defer rows.Close()

	tokens := make(map[string]string)
	for rows.Next() {
		var token, userID string
		if err := rows.Scan(&token, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan auth token: %w", err)
		}
		tokens[token] = userID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auth tokens: %w", err)
	}
	return tokens, nil
}
