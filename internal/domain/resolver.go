package domain

import (
	"context"
	"fmt"
	"strings"
)

// ManifestFetcher loads the manifest published at a base URL.
//
// A nil manifest with a nil error means the base URL publishes nothing.
// The resolver treats that and any error the same way.
type ManifestFetcher interface {
	FetchManifest(ctx context.Context, baseURL string) (*Manifest, error)
}

// Resolver drives one onboarding attempt from a domain to a ProjectConfig.
//
// It is not safe for concurrent use. Only SetDomain performs I/O.
type Resolver struct {
	fetcher ManifestFetcher
	opts    Options
	state   State
}

// NewResolver creates a resolver waiting for a domain.
func NewResolver(fetcher ManifestFetcher, opts Options) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		opts:    opts.withDefaults(),
		state:   SelectingDomain{},
	}
}

// Resume creates a resolver positioned at a previously reached state.
func Resume(fetcher ManifestFetcher, opts Options, state State) (*Resolver, error) {
	if state == nil {
		return nil, fmt.Errorf("resume: nil state")
	}
	r := NewResolver(fetcher, opts)
	r.state = state
	return r, nil
}

// State returns the current state.
func (r *Resolver) State() State {
	return r.state
}

// Restart discards any progress and waits for a new domain.
func (r *Resolver) Restart() State {
	r.state = SelectingDomain{}
	return r.state
}

// SetDomain looks up the manifest for domain and moves to the next step.
//
// A failed lookup is not an error: the resolver stays in SelectingDomain
// with Failure set. Errors are only returned for contract violations.
func (r *Resolver) SetDomain(ctx context.Context, domain string) (State, error) {
	const op = "set domain"

	if _, ok := r.state.(SelectingDomain); !ok {
		return nil, r.violation(op, ErrInvalidTransition)
	}
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, r.violation(op, ErrEmptyDomain)
	}

	baseURL := r.opts.BaseURL(domain)

	manifest, err := r.fetcher.FetchManifest(ctx, baseURL)
	if err != nil || manifest == nil {
		r.state = SelectingDomain{
			Domain:  domain,
			Failure: &LookupError{Domain: domain, BaseURL: baseURL, Err: err},
		}
		return r.state, nil
	}

	apps := cloneApps(manifest.Apps)
	realms := RealmPolicy{
		Selectable: manifest.Realms.Selectable,
		Default:    cloneRealm(manifest.Realms.Default),
	}

	switch {
	case manifest.AllowCustomApp || len(apps) > 1:
		r.state = SelectingApp{
			BaseURL:     baseURL,
			Apps:        apps,
			AllowCustom: manifest.AllowCustomApp,
			Realms:      realms,
		}
	case len(apps) == 1:
		r.state = realmStep(baseURL, apps[0], realms)
	default:
		r.state = realmStep(baseURL, App{Name: r.opts.DefaultApp}, realms)
	}

	return r.state, nil
}

// SetApp selects one of the offered apps.
func (r *Resolver) SetApp(name string) (State, error) {
	const op = "set app"

	current, ok := r.state.(SelectingApp)
	if !ok {
		return nil, r.violation(op, ErrInvalidTransition)
	}

	app, found := current.lookup(name)
	if !found {
		if !current.AllowCustom || strings.TrimSpace(name) == "" {
			return nil, r.violation(op, fmt.Errorf("%w: %q", ErrUnknownApp, name))
		}
		app = App{Name: name}
	}

	r.state = realmStep(current.BaseURL, app, current.Realms)
	return r.state, nil
}

// SetRealm completes the flow. A nil realm means the deployment has none.
func (r *Resolver) SetRealm(realm *string) (State, error) {
	const op = "set realm"

	current, ok := r.state.(SelectingRealm)
	if !ok {
		return nil, r.violation(op, ErrInvalidTransition)
	}
	if realm != nil && *realm == "" {
		return nil, r.violation(op, ErrEmptyRealm)
	}

	r.state = Complete{Config: ProjectConfig{
		BaseURL: current.BaseURL,
		App:     current.App,
		Realm:   cloneRealm(realm),
	}}
	return r.state, nil
}

// realmStep decides what follows once the app is known.
func realmStep(baseURL string, app App, realms RealmPolicy) State {
	switch {
	case app.Realm != nil:
		return Complete{Config: ProjectConfig{BaseURL: baseURL, App: app.Name, Realm: cloneRealm(app.Realm)}}
	case !realms.Selectable:
		return Complete{Config: ProjectConfig{BaseURL: baseURL, App: app.Name}}
	default:
		return SelectingRealm{BaseURL: baseURL, App: app.Name, KnownRealm: cloneRealm(realms.Default)}
	}
}

func (r *Resolver) violation(op string, err error) error {
	return &ContractError{Op: op, Phase: r.state.Phase(), Err: err}
}
