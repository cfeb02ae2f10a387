package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisReferenceCache(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedis(client, time.Hour)
	ctx := context.Background()

	mock.ExpectGet("finalized:R1").RedisNil()
	mock.ExpectSet("finalized:R1", "b-1", time.Hour).SetVal("OK")
	mock.ExpectGet("finalized:R1").SetVal("b-1")

	_, ok, err := c.Lookup(ctx, "R1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Remember(ctx, "R1", "b-1"))

	bookingID, ok, err := c.Lookup(ctx, "R1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b-1", bookingID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisReferenceCacheError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedis(client, time.Hour)

	mock.ExpectGet("finalized:R1").SetErr(errors.New("connection reset"))

	_, ok, err := c.Lookup(context.Background(), "R1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMemoryReferenceCache(t *testing.T) {
	c := NewMemory(time.Hour)
	ctx := context.Background()

	_, ok, err := c.Lookup(ctx, "R1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Remember(ctx, "R1", "b-1"))
	bookingID, ok, err := c.Lookup(ctx, "R1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b-1", bookingID)
}

func TestMemoryReferenceCacheExpires(t *testing.T) {
	c := NewMemory(time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Remember(ctx, "R1", "b-1"))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := c.Lookup(ctx, "R1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewWithoutAddrUsesMemory(t *testing.T) {
	c, err := New("", "", 0, time.Minute)
	require.NoError(t, err)
	_, isMemory := c.(*memoryReferenceCache)
	assert.True(t, isMemory)
}
