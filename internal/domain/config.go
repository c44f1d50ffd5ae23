package domain

import "strings"

const (
	// DefaultPlatformSuffix is the hostname suffix appended to short domain names.
	DefaultPlatformSuffix = "openremote.app"
	// DefaultAppName is the app used when a manifest lists no apps at all.
	DefaultAppName = "manager"
)

// ProjectConfig is the final result of an onboarding flow.
//
// It fully identifies the backend the console connects to. Realm is nil for
// realm-less deployments.
type ProjectConfig struct {
	BaseURL string
	App     string
	Realm   *string
}

// Equal reports whether both configs carry the same base URL, app and realm.
func (c ProjectConfig) Equal(other ProjectConfig) bool {
	return c.BaseURL == other.BaseURL &&
		c.App == other.App &&
		equalRealm(c.Realm, other.Realm)
}

// RealmName returns the realm or "" when the config is realm-less.
func (c ProjectConfig) RealmName() string {
	if c.Realm == nil {
		return ""
	}
	return *c.Realm
}

// App is a named deployment published in a manifest.
type App struct {
	Name  string
	Realm *string // bound realm, nil when the user must choose
}

// RealmPolicy describes how a deployment handles realm selection.
type RealmPolicy struct {
	// Selectable is false when the deployment never asks for a realm.
	Selectable bool
	// Default is the deployment-wide realm hint shown to the user.
	Default *string
}

// Manifest is the app listing fetched from a base URL.
type Manifest struct {
	Apps           []App
	AllowCustomApp bool // user may type an app name that is not listed
	Realms         RealmPolicy
}

// Options pins the host-specific parts of the resolution protocol.
type Options struct {
	PlatformSuffix string
	DefaultApp     string
}

// DefaultOptions returns the options used by the hosted platform.
func DefaultOptions() Options {
	return Options{
		PlatformSuffix: DefaultPlatformSuffix,
		DefaultApp:     DefaultAppName,
	}
}

func (o Options) withDefaults() Options {
	if o.PlatformSuffix == "" {
		o.PlatformSuffix = DefaultPlatformSuffix
	}
	if o.DefaultApp == "" {
		o.DefaultApp = DefaultAppName
	}
	return o
}

// BaseURL derives the backend base URL for a user-entered domain.
// Examples:
//   - "test0" -> "https://test0.openremote.app"
//   - "https://demo.example.com/" -> "https://demo.example.com"
func (o Options) BaseURL(domain string) string {
	o = o.withDefaults()
	domain = strings.TrimSpace(domain)

	lower := strings.ToLower(domain)
	if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") {
		return strings.TrimRight(domain, "/")
	}

	return "https://" + domain + "." + strings.TrimPrefix(o.PlatformSuffix, ".")
}

// Realm returns a pointer to name, for building optional realm values.
func Realm(name string) *string {
	return &name
}

func equalRealm(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneRealm(r *string) *string {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}

func cloneApps(apps []App) []App {
	if apps == nil {
		return nil
	}
	out := make([]App, len(apps))
	for i, a := range apps {
		out[i] = App{Name: a.Name, Realm: cloneRealm(a.Realm)}
	}
	return out
}
