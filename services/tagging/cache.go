package tagging

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/inferly/content-tags/utils/cache"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

const (
	cacheKeyPrefix = "tags:content:"
	cacheTTL       = 24 * time.Hour
)

// Fingerprint derives a stable cache key from content bytes
func Fingerprint(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// CachedTagger wraps a Tagger with a Redis-backed, TTL-bounded result cache
// keyed by content fingerprint. Cache failures are logged and degrade to
// calling the provider; a cache outage never fails a tagging request.
type CachedTagger struct {
	inner Tagger
	cache *cache.RedisCache
}

// NewCachedTagger wraps the given tagger. A nil cache disables caching.
func NewCachedTagger(inner Tagger, c *cache.RedisCache) *CachedTagger {
	return &CachedTagger{inner: inner, cache: c}
}

// Tag implements Tagger. Only successful tag lists are cached; NoTags and
// provider errors always go back to the provider next time.
func (t *CachedTagger) Tag(ctx context.Context, input Input) (Result, error) {
	if t.cache == nil {
		return t.inner.Tag(ctx, input)
	}

	fingerprint := input.Fingerprint
	if fingerprint == "" {
		fingerprint = Fingerprint([]byte(input.ImageURL + input.Text))
	}
	key := cacheKeyPrefix + fingerprint

	var cached []string
	err := t.cache.GetJSON(ctx, key, &cached)
	if err == nil && len(cached) > 0 {
		return Result{Tags: cached}, nil
	}
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		log.Warnf("tag cache read failed: %v", err)
	}

	result, err := t.inner.Tag(ctx, input)
	if err != nil {
		return result, err
	}

	if len(result.Tags) > 0 {
		if err := t.cache.SetJSON(ctx, key, result.Tags, cacheTTL); err != nil {
			log.Warnf("tag cache write failed: %v", err)
		}
	}

	return result, nil
}
