package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotRepoStub struct {
	memoryCache
	loadErr error
	ttls    []time.Duration
}

func (s *snapshotRepoStub) Load(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s.loadErr != nil {
		return false, s.loadErr
	}
	return s.memoryCache.Get(ctx, key, dest)
}

func (s *snapshotRepoStub) Store(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.ttls = append(s.ttls, ttl)
	return s.memoryCache.Set(ctx, key, value, ttl)
}

type cacheMetricsStub struct {
	lookups []string
	writes  int
}

func (c *cacheMetricsStub) RecordCacheLookup(result string, _ time.Duration) {
	c.lookups = append(c.lookups, result)
}

func (c *cacheMetricsStub) ObserveCacheWrite(time.Duration) { c.writes++ }

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := &snapshotRepoStub{memoryCache: memoryCache{items: map[string][]byte{}}}
	metrics := &cacheMetricsStub{}
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out []string
	hit, err := svc.Get(ctx, "chart", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "chart", []string{"a", "b"}, 0))
	hit, err = svc.Get(ctx, "chart", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a", "b"}, out)

	repo.loadErr = errors.New("redis down")
	hit, err = svc.Get(ctx, "chart", &out)
	require.Error(t, err)
	assert.False(t, hit)

	assert.Equal(t, []string{CacheMiss, CacheHit, CacheError}, metrics.lookups)
	assert.Equal(t, 1, metrics.writes)
	assert.Equal(t, []time.Duration{time.Minute}, repo.ttls)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &snapshotRepoStub{memoryCache: memoryCache{items: map[string][]byte{}}}
	svc := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, svc.Set(context.Background(), "chart", 1, 0))
	assert.Empty(t, repo.items)
	hit, err := svc.Get(context.Background(), "chart", new(int))
	require.NoError(t, err)
	assert.False(t, hit)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}
