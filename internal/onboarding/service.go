package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/onboard/internal/domain"
	"github.com/MrSnakeDoc/onboard/internal/logger"
)

// SessionStore persists sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Service runs onboarding flows on behalf of remote callers.
//
// Every call rebuilds a domain.Resolver around the stored state, applies
// one transition and persists the result. Calls for the same session are
// serialised so the resolver keeps a single writer.
type Service struct {
	store   SessionStore
	fetcher domain.ManifestFetcher
	opts    domain.Options
	logger  logger.Logger
	now     func() time.Time

	locks sessionLocks
}

// NewService creates a session service.
func NewService(store SessionStore, fetcher domain.ManifestFetcher, opts domain.Options, log logger.Logger) *Service {
	return &Service{
		store:   store,
		fetcher: fetcher,
		opts:    opts,
		logger:  log,
		now:     time.Now,
	}
}

// Start opens a new session waiting for a domain.
func (s *Service) Start(ctx context.Context) (*domain.Session, error) {
	now := s.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		State:     domain.SelectingDomain{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.logger.Info("onboarding session started", logger.String("session", session.ID))
	return session, nil
}

// Get returns the current session.
func (s *Service) Get(ctx context.Context, id string) (*domain.Session, error) {
	return s.store.Get(ctx, id)
}

// Delete discards a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	defer s.locks.acquire(id)()

	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("onboarding session discarded", logger.String("session", id))
	return nil
}

// SetDomain looks up the manifest for domain.
func (s *Service) SetDomain(ctx context.Context, id, domainName string) (*domain.Session, error) {
	return s.apply(ctx, id, "set_domain", func(r *domain.Resolver, session *domain.Session) (domain.State, error) {
		session.Lookups++
		return r.SetDomain(ctx, domainName)
	})
}

// SetApp selects one of the offered apps.
func (s *Service) SetApp(ctx context.Context, id, app string) (*domain.Session, error) {
	return s.apply(ctx, id, "set_app", func(r *domain.Resolver, _ *domain.Session) (domain.State, error) {
		return r.SetApp(app)
	})
}

// SetRealm completes the flow with realm, which may be nil.
func (s *Service) SetRealm(ctx context.Context, id string, realm *string) (*domain.Session, error) {
	return s.apply(ctx, id, "set_realm", func(r *domain.Resolver, _ *domain.Session) (domain.State, error) {
		return r.SetRealm(realm)
	})
}

// Restart sends the session back to domain selection.
func (s *Service) Restart(ctx context.Context, id string) (*domain.Session, error) {
	return s.apply(ctx, id, "restart", func(r *domain.Resolver, _ *domain.Session) (domain.State, error) {
		return r.Restart(), nil
	})
}

type transition func(r *domain.Resolver, session *domain.Session) (domain.State, error)

func (s *Service) apply(ctx context.Context, id, op string, fn transition) (*domain.Session, error) {
	defer s.locks.acquire(id)()

	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resolver, err := domain.Resume(s.fetcher, s.opts, session.State)
	if err != nil {
		return nil, fmt.Errorf("failed to resume session %s: %w", id, err)
	}

	from := session.State.Phase()
	log := s.logger.With(
		logger.String("session", id),
		logger.String("op", op),
		logger.String("from", string(from)))

	state, err := fn(resolver, session)
	if err != nil {
		if domain.IsContractViolation(err) {
			log.Info("rejected onboarding call", logger.Error(err))
		} else {
			log.Error("onboarding call failed", logger.Error(err))
		}
		return nil, err
	}

	session.State = state
	session.UpdatedAt = s.now()

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logTransition(log, session)
	return session, nil
}

func (s *Service) logTransition(log logger.Logger, session *domain.Session) {
	switch st := session.State.(type) {
	case domain.SelectingDomain:
		if st.Failure != nil {
			log.Warn("domain not recognized",
				logger.String("domain", st.Domain),
				logger.Int("lookups", session.Lookups),
				logger.Error(st.Failure))
			return
		}
		log.Info("waiting for domain")
	case domain.SelectingApp:
		log.Info("waiting for app",
			logger.String("base_url", st.BaseURL),
			logger.Strings("apps", st.AppNames()),
			logger.Bool("allow_custom", st.AllowCustom))
	case domain.SelectingRealm:
		log.Info("waiting for realm",
			logger.String("base_url", st.BaseURL),
			logger.String("app", st.App))
	case domain.Complete:
		log.Info("onboarding complete",
			logger.String("base_url", st.Config.BaseURL),
			logger.String("app", st.Config.App),
			logger.String("realm", st.Config.RealmName()))
	}
}

// Ping checks the session store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("session store unavailable: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrSessionNotFound)
}
