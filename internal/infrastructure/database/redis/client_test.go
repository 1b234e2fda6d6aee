package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/internal/config"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Success(t *testing.T) {
	client, _ := newTestClient(t)

	assert.Equal(t, config.DefaultRedisKeyPrefix, client.Prefix())
	assert.Equal(t, config.DefaultRedisTTL, client.DefaultTTL())
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewClient_EmptyAddr(t *testing.T) {
	_, err := NewClient(config.RedisConfig{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewClient(config.RedisConfig{Addr: addr, DialTimeout: 200 * time.Millisecond}, nil)
	require.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestClient_CustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "tenant-a:", DefaultTTL: time.Minute}, nil)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "tenant-a:", client.Prefix())
	assert.Equal(t, time.Minute, client.DefaultTTL())
	assert.Equal(t, "tenant-a:x", client.key("x"))
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client, _ := newTestClient(t)

	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())
	assert.ErrorIs(t, client.Ping(context.Background()), ErrClientClosed)
}

//Personal.AI order the ending
