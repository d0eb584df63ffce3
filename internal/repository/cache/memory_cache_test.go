package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/route-composer/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewMemoryCache(clk, zap.NewNop())

	require.NoError(t, c.Set(ctx, "road:a", []byte("route"), 24*time.Hour))

	val, err := c.Get(ctx, "road:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("route"), val)

	clk.Advance(24*time.Hour - time.Second)
	val, _ = c.Get(ctx, "road:a")
	assert.NotNil(t, val)

	clk.Advance(time.Second)
	val, _ = c.Get(ctx, "road:a")
	assert.Nil(t, val, "entry must expire exactly at TTL")

	n, _ := c.Len(ctx)
	assert.Equal(t, 1, n, "expired entry stays until swept")
}

func TestMemoryCache_Sweep(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewMemoryCache(clk, zap.NewNop())

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), 7*24*time.Hour))

	assert.Equal(t, 0, c.Sweep())

	clk.Advance(2 * time.Hour)
	assert.Equal(t, 1, c.Sweep())

	n, _ := c.Len(ctx)
	assert.Equal(t, 1, n)
	val, _ := c.Get(ctx, "long")
	assert.Equal(t, []byte("2"), val)
}

func TestMemoryCache_SetCopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(clock.Real(), zap.NewNop())

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'x'

	val, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), val)

	require.NoError(t, c.Delete(ctx, "k"))
	val, _ = c.Get(ctx, "k")
	assert.Nil(t, val)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(clock.Real(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Set(ctx, "shared", []byte{byte(i)}, time.Minute)
				_, _ = c.Get(ctx, "shared")
				c.Sweep()
			}
		}(i)
	}
	wg.Wait()

	n, _ := c.Len(ctx)
	assert.Equal(t, 1, n)
}
