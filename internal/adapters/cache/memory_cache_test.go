package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
)

func testVerdict(key string, ttl time.Duration) *core.CachedVerdict {
	return &core.CachedVerdict{
		Key:       key,
		Score:     55,
		Level:     core.ThreatHigh,
		Report:    &core.Report{TotalScore: 55, ThreatLevel: core.ThreatHigh},
		LastSeen:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, testVerdict("abc", time.Hour)))

	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 55.0, got.Score)
	assert.Equal(t, core.ThreatHigh, got.Level)
	require.NotNil(t, got.Report)
	assert.Equal(t, 55.0, got.Report.TotalScore)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testVerdict("old", -time.Minute)))

	_, err := c.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testVerdict("abc", time.Hour)))
	require.NoError(t, c.Delete(ctx, "abc"))

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCacheCleanup(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testVerdict("fresh", time.Hour)))
	require.NoError(t, c.Set(ctx, testVerdict("stale", -time.Minute)))

	require.NoError(t, c.Cleanup(ctx))

	_, err := c.Get(ctx, "fresh")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
}
