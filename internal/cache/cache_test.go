package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/ecobalance/internal/advisory"
	"github.com/neexbeast/ecobalance/internal/cache"
	"github.com/neexbeast/ecobalance/internal/destination"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func sampleDestination() destination.Destination {
	return destination.Destination{
		ID:      "Kyoto-Japan",
		Status:  destination.StatusCaution,
		Metrics: destination.MetricSet{EcoStress: 55.4},
	}
}

func sampleAdvisory() *advisory.Advisory {
	return &advisory.Advisory{
		Summary:        "Busy temples in blossom season.",
		Risks:          []string{"Crowds"},
		Recommendation: "Go early in the morning.",
	}
}

func TestAdvisoryCache_SetAndGet(t *testing.T) {
	client, mr := newTestClient(t)
	c := cache.NewAdvisoryCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, sampleDestination(), sampleAdvisory()))
	assert.True(t, mr.Exists("advisory:kyoto-japan:caution-advised:55"))

	got, err := c.Get(ctx, sampleDestination())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *sampleAdvisory(), *got)
}

func TestAdvisoryCache_Miss(t *testing.T) {
	client, _ := newTestClient(t)
	c := cache.NewAdvisoryCache(client)

	got, err := c.Get(context.Background(), sampleDestination())
	require.NoError(t, err)
	assert.Nil(t, got, "cache miss should return nil, nil")
}

func TestAdvisoryCache_StateChangeMisses(t *testing.T) {
	client, _ := newTestClient(t)
	c := cache.NewAdvisoryCache(client)
	ctx := context.Background()

	d := sampleDestination()
	require.NoError(t, c.Set(ctx, d, sampleAdvisory()))

	d.Status = destination.StatusRisky
	got, err := c.Get(ctx, d)
	require.NoError(t, err)
	assert.Nil(t, got)

	d = sampleDestination()
	d.Metrics.EcoStress = 70
	got, err = c.Get(ctx, d)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAdvisoryCache_SkipsNilAndFallback(t *testing.T) {
	client, mr := newTestClient(t)
	c := cache.NewAdvisoryCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, sampleDestination(), nil))
	fb := advisory.Fallback(sampleDestination())
	require.NoError(t, c.Set(ctx, sampleDestination(), &fb))
	assert.Empty(t, mr.Keys())
}

func TestAdvisoryCache_BadJSON(t *testing.T) {
	client, mr := newTestClient(t)
	c := cache.NewAdvisoryCache(client)
	require.NoError(t, mr.Set("advisory:kyoto-japan:caution-advised:55", "{not json"))

	_, err := c.Get(context.Background(), sampleDestination())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

func TestAdvisoryCache_TTL(t *testing.T) {
	client, mr := newTestClient(t)
	c := cache.NewAdvisoryCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, sampleDestination(), sampleAdvisory()))

	mr.FastForward(2 * time.Hour)

	got, err := c.Get(ctx, sampleDestination())
	require.NoError(t, err)
	assert.Nil(t, got, "entry should be expired after TTL")
}

func TestAdvisoryCache_RedisDown(t *testing.T) {
	client, mr := newTestClient(t)
	c := cache.NewAdvisoryCache(client)
	mr.Close()

	_, err := c.Get(context.Background(), sampleDestination())
	require.Error(t, err)
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := cache.Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestConnect_UnreachableServer(t *testing.T) {
	_, err := cache.Connect(context.Background(), "redis://localhost:19999")
	require.Error(t, err)
}

func TestConnect_OK(t *testing.T) {
	_, mr := newTestClient(t)
	client, err := cache.Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = client.Close()
}
