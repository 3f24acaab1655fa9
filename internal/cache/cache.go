// Package cache memoizes name-resolution results between consolidation runs.
// Scheduled runs in the same process resolve mostly the same source names
// against a slowly-changing canonical set; the cache short-circuits the
// cascade for names it has already placed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/drugmerge/drugmerge/internal/model"
)

// Key derives the cache key for a source name
func Key(sourceName string) string {
	hash := sha256.Sum256([]byte(sourceName))
	return "drugmerge:v1:" + hex.EncodeToString(hash[:])
}

// ResolutionCache is an in-memory TTL cache of match results keyed by
// raw source name
type ResolutionCache struct {
	cache *gocache.Cache
}

// NewResolutionCache creates a resolution cache with the given default TTL
// and cleanup interval
func NewResolutionCache(defaultTTL, cleanupInterval time.Duration) *ResolutionCache {
	return &ResolutionCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a cached resolution for a source name
func (c *ResolutionCache) Get(sourceName string) (model.MatchResult, bool) {
	if val, found := c.cache.Get(Key(sourceName)); found {
		return val.(model.MatchResult), true
	}
	return model.MatchResult{}, false
}

// Set stores a resolution using the cache's default TTL
func (c *ResolutionCache) Set(sourceName string, result model.MatchResult) {
	c.cache.Set(Key(sourceName), result, gocache.DefaultExpiration)
}

// Clear removes all cached resolutions. Called when the canonical name set
// changes, since cached placements are only valid against the set they were
// resolved into.
func (c *ResolutionCache) Clear() {
	c.cache.Flush()
}
