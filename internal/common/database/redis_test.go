// internal/common/database/redis_test.go
package database

import (
	"context"
	"testing"
	"time"

	"notification-queue/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedis(config.RedisConfig{Address: mr.Addr(), PoolSize: 2, ReadTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 2, rdb.Client.Options().PoolSize)
	require.NoError(t, rdb.Ping(context.Background()))
	require.NoError(t, rdb.Close())
}

func TestNewRedis_EmptyAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.EqualError(t, err, "redis address is empty")
}

func TestRedisClient_PingDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewRedis(config.RedisConfig{Address: mr.Addr(), DialTimeout: 200 * time.Millisecond})
	require.NoError(t, err)
	defer rdb.Close()

	addr := mr.Addr()
	mr.Close()
	err = rdb.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping "+addr)
}
