package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := Connect(ctx, mr.Addr())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())

	urlClient, err := Connect(ctx, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer urlClient.Close()
	got, err := urlClient.Get(ctx, "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnectBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "redis://localhost:notaport")
	assert.Error(t, err)
}
