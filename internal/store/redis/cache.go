package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/onboard/internal/domain"
)

// GetManifest retrieves a cached manifest. A miss returns (nil, nil).
func (s *Store) GetManifest(ctx context.Context, baseURL string) (*domain.Manifest, error) {
	data, err := s.client.Get(ctx, ManifestKey(baseURL)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get cached manifest: %w", err)
	}

	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached manifest: %w", err)
	}
	return &m, nil
}

// PutManifest caches a manifest for ttl
func (s *Store) PutManifest(ctx context.Context, baseURL string, m *domain.Manifest, ttl time.Duration) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := s.client.Set(ctx, ManifestKey(baseURL), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache manifest: %w", err)
	}
	return nil
}

// InvalidateManifest removes a cached manifest and reports how many keys went (0 or 1)
func (s *Store) InvalidateManifest(ctx context.Context, baseURL string) (int, error) {
	n, err := s.client.Del(ctx, ManifestKey(baseURL)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate manifest: %w", err)
	}
	return int(n), nil
}

// FlushManifests removes all cached manifests and returns how many were deleted
func (s *Store) FlushManifests(ctx context.Context) (int, error) {
	deleted := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixManifest+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("failed to delete manifest key: %w", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan manifest keys: %w", err)
	}
	return deleted, nil
}
