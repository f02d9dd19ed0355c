// Package tokens_repo holds the durable stores the token registry is
// loaded from.
package tokens_repo

import "context"

// TokenSource returns the full token -> user id map.
type TokenSource interface {
	LoadTokens(ctx context.Context) (map[string]string, error)
}
