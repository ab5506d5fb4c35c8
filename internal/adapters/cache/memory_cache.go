package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
)

var (
	// ErrNotFound is returned when a cached verdict is not found
	ErrNotFound = errors.New("verdict not found")
	// ErrExpired is returned when a cached verdict has expired
	ErrExpired = errors.New("verdict expired")
)

// MemoryCache is an in-memory implementation of the VerdictCache interface
type MemoryCache struct {
	verdicts    map[string]*core.CachedVerdict
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMemoryCache creates a new in-memory verdict cache
func NewMemoryCache(logger *zap.Logger, cleanupFreq time.Duration) *MemoryCache {
	cache := &MemoryCache{
		verdicts:    make(map[string]*core.CachedVerdict),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go cache.startCleanupTask()

	return cache
}

// Get retrieves a cached verdict for a content hash
func (c *MemoryCache) Get(_ context.Context, key string) (*core.CachedVerdict, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	verdict, ok := c.verdicts[key]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(verdict.ExpiresAt) {
		return nil, ErrExpired
	}
	return verdict, nil
}

// Set stores a verdict
func (c *MemoryCache) Set(_ context.Context, verdict *core.CachedVerdict) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verdicts[verdict.Key] = verdict
	return nil
}

// Delete removes a verdict
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.verdicts, key)
	return nil
}

// Cleanup removes expired verdicts
func (c *MemoryCache) Cleanup(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expiredCount := 0

	for key, verdict := range c.verdicts {
		if now.After(verdict.ExpiresAt) {
			delete(c.verdicts, key)
			expiredCount++
		}
	}

	c.logger.Debug("cleaned up expired verdicts", zap.Int("expired_count", expiredCount))
	return nil
}

// startCleanupTask starts a background task to clean up expired verdicts
func (c *MemoryCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	close(c.stopCh)
}
