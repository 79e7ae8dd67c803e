package database

import (
	"context"
	"testing"

	"signalx/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClient_PingAndClose(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)

	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestRedisClient_PingFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	client, err := NewRedis(config.RedisConfig{Address: addr})
	require.NoError(t, err)
	defer client.Close()

	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestPostgresClient_Close(t *testing.T) {
	client, err := NewPostgres(config.PostgresConfig{
		Host: "localhost", Port: 5432, User: "signalx", Database: "signalx",
		SSLMode: "disable", MaxConnections: 2, MaxIdle: 1,
	})
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}
