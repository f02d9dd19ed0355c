package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// TokenSource reads tokens from a single Redis hash of token -> user id.
type TokenSource struct {
	client *goredis.Client
	key    string
}

func NewTokenSource(client *goredis.Client, key string) *TokenSource {
	return &TokenSource{client: client, key: key}
}

func (s *TokenSource) LoadTokens(ctx context.Context) (map[string]string, error) {
	tokens, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load auth tokens from %s: %w", s.key, err)
	}
	return tokens, nil
}
