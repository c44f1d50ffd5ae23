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

const (
	// DefaultSessionTTL is the idle lifetime of an onboarding session
	DefaultSessionTTL = 30 * time.Minute
	// DefaultManifestTTL is the default lifetime of a cached manifest
	DefaultManifestTTL = 5 * time.Minute
)

// Store handles Redis operations for sessions and the manifest cache
type Store struct {
	client     redis.UniversalClient
	sessionTTL time.Duration
}

// NewStore creates a new Redis store. A non-positive sessionTTL falls back
// to DefaultSessionTTL.
func NewStore(client redis.UniversalClient, sessionTTL time.Duration) *Store {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Store{
		client:     client,
		sessionTTL: sessionTTL,
	}
}

// sessionRecord is the JSON document stored per session
type sessionRecord struct {
	ID        string               `json:"id"`
	State     domain.StateEnvelope `json:"state"`
	Lookups   int                  `json:"lookups"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Save stores a session and refreshes its TTL
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(sessionRecord{
		ID:        session.ID,
		State:     domain.EncodeState(session.State),
		Lookups:   session.Lookups,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, SessionKey(session.ID), data, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (s *Store) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, SessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	state, err := domain.DecodeState(rec.State)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}

	return &domain.Session{
		ID:        rec.ID,
		State:     state,
		Lookups:   rec.Lookups,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// Delete removes a session
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, SessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Mode names the backing store for status endpoints
func (s *Store) Mode() string {
	return "redis"
}

// CountSessions counts live session keys
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixSession+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return count, nil
}
