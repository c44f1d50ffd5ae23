package domain

import (
	"errors"
	"fmt"
)

// StateEnvelope is the flat wire form of a State, used for persistence and
// for the HTTP API. Only the fields of the active phase are populated.
type StateEnvelope struct {
	Phase Phase `json:"phase"`

	// selecting_domain
	Domain  string           `json:"domain,omitempty"`
	Failure *FailureEnvelope `json:"failure,omitempty"`

	// selecting_app, selecting_realm
	BaseURL string `json:"base_url,omitempty"`

	// selecting_app
	Apps            []AppEnvelope `json:"apps,omitempty"`
	AllowCustomApp  bool          `json:"allow_custom_app,omitempty"`
	RealmSelectable *bool         `json:"realm_selectable,omitempty"`
	DefaultRealm    *string       `json:"default_realm,omitempty"`

	// selecting_realm
	App        string  `json:"app,omitempty"`
	KnownRealm *string `json:"known_realm,omitempty"`

	// complete
	Config *ConfigEnvelope `json:"config,omitempty"`
}

// FailureEnvelope carries a LookupError.
type FailureEnvelope struct {
	Message string `json:"message"`
	BaseURL string `json:"base_url"`
	Cause   string `json:"cause,omitempty"`
}

type AppEnvelope struct {
	Name  string  `json:"name"`
	Realm *string `json:"realm,omitempty"`
}

type ConfigEnvelope struct {
	BaseURL string  `json:"base_url"`
	App     string  `json:"app"`
	Realm   *string `json:"realm"`
}

// EncodeState converts s to its envelope.
func EncodeState(s State) StateEnvelope {
	env := StateEnvelope{Phase: s.Phase()}

	switch v := s.(type) {
	case SelectingDomain:
		env.Domain = v.Domain
		if v.Failure != nil {
			env.Failure = encodeFailure(v.Failure)
		}
	case SelectingApp:
		env.BaseURL = v.BaseURL
		env.AllowCustomApp = v.AllowCustom
		selectable := v.Realms.Selectable
		env.RealmSelectable = &selectable
		env.DefaultRealm = cloneRealm(v.Realms.Default)
		env.Apps = make([]AppEnvelope, 0, len(v.Apps))
		for _, a := range v.Apps {
			env.Apps = append(env.Apps, AppEnvelope{Name: a.Name, Realm: cloneRealm(a.Realm)})
		}
	case SelectingRealm:
		env.BaseURL = v.BaseURL
		env.App = v.App
		env.KnownRealm = cloneRealm(v.KnownRealm)
	case Complete:
		env.Config = &ConfigEnvelope{
			BaseURL: v.Config.BaseURL,
			App:     v.Config.App,
			Realm:   cloneRealm(v.Config.Realm),
		}
	}

	return env
}

// DecodeState rebuilds a State from its envelope.
func DecodeState(env StateEnvelope) (State, error) {
	switch env.Phase {
	case PhaseSelectingDomain:
		s := SelectingDomain{Domain: env.Domain}
		if env.Failure != nil {
			le := &LookupError{Domain: env.Domain, BaseURL: env.Failure.BaseURL}
			if env.Failure.Cause != "" {
				le.Err = errors.New(env.Failure.Cause)
			}
			s.Failure = le
		}
		return s, nil

	case PhaseSelectingApp:
		if env.BaseURL == "" {
			return nil, fmt.Errorf("decode %s: missing base_url", env.Phase)
		}
		s := SelectingApp{
			BaseURL:     env.BaseURL,
			AllowCustom: env.AllowCustomApp,
			Realms:      RealmPolicy{Selectable: true, Default: cloneRealm(env.DefaultRealm)},
		}
		if env.RealmSelectable != nil {
			s.Realms.Selectable = *env.RealmSelectable
		}
		for _, a := range env.Apps {
			s.Apps = append(s.Apps, App{Name: a.Name, Realm: cloneRealm(a.Realm)})
		}
		return s, nil

	case PhaseSelectingRealm:
		if env.BaseURL == "" || env.App == "" {
			return nil, fmt.Errorf("decode %s: missing base_url or app", env.Phase)
		}
		return SelectingRealm{BaseURL: env.BaseURL, App: env.App, KnownRealm: cloneRealm(env.KnownRealm)}, nil

	case PhaseComplete:
		if env.Config == nil {
			return nil, fmt.Errorf("decode %s: missing config", env.Phase)
		}
		return Complete{Config: ProjectConfig{
			BaseURL: env.Config.BaseURL,
			App:     env.Config.App,
			Realm:   cloneRealm(env.Config.Realm),
		}}, nil

	default:
		return nil, fmt.Errorf("decode state: unknown phase %q", env.Phase)
	}
}

func encodeFailure(err error) *FailureEnvelope {
	f := &FailureEnvelope{Message: err.Error()}
	var le *LookupError
	if errors.As(err, &le) {
		f.BaseURL = le.BaseURL
		if le.Err != nil {
			f.Cause = le.Err.Error()
		}
		return f
	}
	f.Cause = err.Error()
	return f
}
