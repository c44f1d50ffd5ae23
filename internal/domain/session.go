package domain

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned by session stores for unknown or expired IDs.
var ErrSessionNotFound = errors.New("session not found")

// Session is one onboarding attempt driven through the HTTP API.
//
// It carries the resolver state between requests; the resolver itself is
// rebuilt around State for every call.
type Session struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is a random UUID handed to the client.
	ID string

	// CreatedAt is when the flow was started.
	CreatedAt time.Time

	// ─────────────────────────────
	// Progress
	// ─────────────────────────────

	// State is the current resolution step.
	State State

	// Lookups counts SetDomain calls, failed or not.
	Lookups int

	// UpdatedAt is refreshed by every transition and drives expiry.
	UpdatedAt time.Time
}

// Expired reports whether the session has been idle for longer than ttl.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || s.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(s.UpdatedAt) > ttl
}
