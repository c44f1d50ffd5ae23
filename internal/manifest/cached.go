package manifest

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/onboard/internal/domain"
	"github.com/MrSnakeDoc/onboard/internal/logger"
)

// Cache stores successfully fetched manifests by base URL.
// GetManifest returns (nil, nil) on a miss.
type Cache interface {
	GetManifest(ctx context.Context, baseURL string) (*domain.Manifest, error)
	PutManifest(ctx context.Context, baseURL string, m *domain.Manifest, ttl time.Duration) error
}

// CachingFetcher serves manifests from a Cache and falls back to the
// wrapped fetcher. Failures are never cached, so a retried domain is always
// looked up again.
type CachingFetcher struct {
	next   domain.ManifestFetcher
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

// NewCachingFetcher wraps next. A non-positive ttl disables caching.
func NewCachingFetcher(next domain.ManifestFetcher, cache Cache, ttl time.Duration, log logger.Logger) domain.ManifestFetcher {
	if cache == nil || ttl <= 0 {
		return next
	}
	return &CachingFetcher{next: next, cache: cache, ttl: ttl, logger: log}
}

// FetchManifest implements domain.ManifestFetcher.
func (c *CachingFetcher) FetchManifest(ctx context.Context, baseURL string) (*domain.Manifest, error) {
	cached, err := c.cache.GetManifest(ctx, baseURL)
	switch {
	case err != nil:
		c.logger.Warn("manifest cache read failed",
			logger.String("base_url", baseURL),
			logger.Error(err))
	case cached != nil:
		c.logger.Debug("manifest cache hit", logger.String("base_url", baseURL))
		return cached, nil
	}

	m, err := c.next.FetchManifest(ctx, baseURL)
	if err != nil || m == nil {
		return m, err
	}

	// Best effort
	if err := c.cache.PutManifest(ctx, baseURL, m, c.ttl); err != nil {
		c.logger.Warn("manifest cache write failed",
			logger.String("base_url", baseURL),
			logger.Error(err))
	}

	return m, nil
}
