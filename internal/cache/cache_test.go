package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wardView struct {
	Ward  string `json:"ward"`
	Total int    `json:"total"`
}

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var got wardView
	found, err := c.Get(ctx, "beds:availability", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "beds:availability", wardView{Ward: "ICU", Total: 4}, time.Minute))
	found, err = c.Get(ctx, "beds:availability", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, wardView{Ward: "ICU", Total: 4}, got)

	require.NoError(t, c.Delete(ctx, "beds:availability"))
	found, _ = c.Get(ctx, "beds:availability", &got)
	assert.False(t, found)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", 1, 30*time.Second))
	now = now.Add(31 * time.Second)

	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	require.NoError(t, c.Set(context.Background(), "k", 1, time.Second))
	found, err := c.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func newRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedis_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedis(t)

	var got wardView
	found, err := c.Get(ctx, "beds:availability", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "beds:availability", wardView{Ward: "ICU", Total: 4}, time.Minute))
	assert.True(t, mr.Exists("medicare:beds:availability"))

	found, err = c.Get(ctx, "beds:availability", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, wardView{Ward: "ICU", Total: 4}, got)

	require.NoError(t, c.Delete(ctx, "beds:availability", "doctors:list"))
	require.NoError(t, c.Delete(ctx))
	found, _ = c.Get(ctx, "beds:availability", &got)
	assert.False(t, found)
	assert.NoError(t, c.Ping(ctx))
}

func TestRedis_Expiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedis(t)

	require.NoError(t, c.Set(ctx, "k", 1, 30*time.Second))
	mr.FastForward(31 * time.Second)

	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedis_UndecodableValue(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedis(t)
	require.NoError(t, mr.Set("medicare:k", "not json"))

	var v wardView
	_, err := c.Get(ctx, "k", &v)
	assert.Error(t, err)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), "redis://"+addr)
	assert.Error(t, err)
}
