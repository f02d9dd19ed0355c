package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.HSet("marketplace:tokens", "tok-a", "u1", "tok-b", "u2")

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	tokens, err := NewTokenSource(client, "marketplace:tokens").LoadTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tok-a": "u1", "tok-b": "u2"}, tokens)
}

func TestLoadTokensMissingKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	tokens, err := NewTokenSource(client, "absent").LoadTokens(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestLoadTokensUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err = NewTokenSource(client, "marketplace:tokens").LoadTokens(context.Background())
	assert.Error(t, err)
}
