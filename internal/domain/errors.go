package domain

import (
	"errors"
	"fmt"
)

// Contract violations: the caller used the resolver wrongly.
var (
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	ErrUnknownApp        = errors.New("app is not among the offered choices")
	ErrEmptyDomain       = errors.New("domain must not be empty")
	ErrEmptyRealm        = errors.New("realm must be omitted or non-empty")
)

// ErrDomainNotRecognized marks a recoverable lookup failure.
var ErrDomainNotRecognized = errors.New("domain not recognized")

// ContractError is returned when a transition is invoked against the protocol.
// It is never retryable.
type ContractError struct {
	Op    string
	Phase Phase
	Err   error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s in phase %s: %v", e.Op, e.Phase, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

// IsContractViolation reports whether err comes from resolver misuse.
func IsContractViolation(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

// LookupError describes why a domain did not resolve to a manifest.
// It is carried by SelectingDomain, not returned.
type LookupError struct {
	Domain  string
	BaseURL string
	Err     error // nil when the fetcher reported no manifest
}

func (e *LookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: no manifest at %s", ErrDomainNotRecognized, e.BaseURL)
	}
	return fmt.Sprintf("%s: %s: %v", ErrDomainNotRecognized, e.BaseURL, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDomainNotRecognized) hold for every LookupError.
func (e *LookupError) Is(target error) bool {
	return target == ErrDomainNotRecognized
}
