package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCacheHelper_GetSet(t *testing.T) {
	_, client := newTestRedis(t)
	helper := NewCacheHelper(client, "course:")
	ctx := context.Background()

	type doc struct {
		Name string `json:"name"`
	}

	require.NoError(t, helper.Set(ctx, "id:1", doc{Name: "Go"}, time.Minute))

	var got doc
	require.NoError(t, helper.Get(ctx, "id:1", &got))
	assert.Equal(t, "Go", got.Name)

	SafeDelete(ctx, helper, "id:1")
	assert.ErrorIs(t, helper.Get(ctx, "id:1", &got), ErrCacheNotFound)
}

func TestCacheHelper_NilClientDegrades(t *testing.T) {
	helper := NewCacheHelper(nil, "")
	ctx := context.Background()

	assert.NoError(t, helper.Set(ctx, "k", 1, time.Minute))
	assert.ErrorIs(t, helper.Get(ctx, "k", new(int)), ErrCacheNotAvailable)

	_, err := helper.SetNX(ctx, "k", "v", time.Minute)
	assert.ErrorIs(t, err, ErrCacheNotAvailable)
}

func TestCacheHelper_SetNXAndGetDel(t *testing.T) {
	mr, client := newTestRedis(t)
	helper := NewCacheHelper(client, "p:")
	ctx := context.Background()

	ok, err := helper.SetNX(ctx, "a", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = helper.SetNX(ctx, "a", "2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists("p:a"))

	v, err := helper.GetDel(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	_, err = helper.GetDel(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheNotFound)
}
