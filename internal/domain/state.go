package domain

// Phase names the active variant of a resolution State.
type Phase string

const (
	PhaseSelectingDomain Phase = "selecting_domain"
	PhaseSelectingApp    Phase = "selecting_app"
	PhaseSelectingRealm  Phase = "selecting_realm"
	PhaseComplete        Phase = "complete"
)

// State is the current step of an onboarding flow.
//
// Exactly one of SelectingDomain, SelectingApp, SelectingRealm or Complete.
// The set is closed: the unexported marker keeps other packages from adding
// variants, so a type switch over these four is exhaustive.
type State interface {
	Phase() Phase
	state()
}

// SelectingDomain waits for a domain. Failure is set when the previous
// lookup did not yield a manifest and the user must try another domain.
type SelectingDomain struct {
	Domain  string // last domain attempted, empty initially
	Failure error  // *LookupError after a failed lookup
}

// SelectingApp waits for the user to pick one of several apps.
type SelectingApp struct {
	BaseURL     string
	Apps        []App
	AllowCustom bool
	Realms      RealmPolicy
}

// SelectingRealm waits for the realm of an already determined app.
type SelectingRealm struct {
	BaseURL    string
	App        string
	KnownRealm *string // hint from the manifest, if any
}

// Complete holds the finished configuration.
type Complete struct {
	Config ProjectConfig
}

func (SelectingDomain) Phase() Phase { return PhaseSelectingDomain }
func (SelectingApp) Phase() Phase    { return PhaseSelectingApp }
func (SelectingRealm) Phase() Phase  { return PhaseSelectingRealm }
func (Complete) Phase() Phase        { return PhaseComplete }

func (SelectingDomain) state() {}
func (SelectingApp) state()    {}
func (SelectingRealm) state()  {}
func (Complete) state()        {}

// AppNames returns the offered app names in manifest order.
func (s SelectingApp) AppNames() []string {
	names := make([]string, 0, len(s.Apps))
	for _, a := range s.Apps {
		names = append(names, a.Name)
	}
	return names
}

func (s SelectingApp) lookup(name string) (App, bool) {
	for _, a := range s.Apps {
		if a.Name == name {
			return a, true
		}
	}
	return App{}, false
}

// Equal reports structural equality of two states of the same phase.
// SelectingDomain failures are compared by message only.
func Equal(a, b State) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case SelectingDomain:
		y, ok := b.(SelectingDomain)
		return ok && x.Domain == y.Domain && errorText(x.Failure) == errorText(y.Failure)
	case SelectingApp:
		y, ok := b.(SelectingApp)
		if !ok || x.BaseURL != y.BaseURL || x.AllowCustom != y.AllowCustom || len(x.Apps) != len(y.Apps) {
			return false
		}
		if x.Realms.Selectable != y.Realms.Selectable || !equalRealm(x.Realms.Default, y.Realms.Default) {
			return false
		}
		for i := range x.Apps {
			if x.Apps[i].Name != y.Apps[i].Name || !equalRealm(x.Apps[i].Realm, y.Apps[i].Realm) {
				return false
			}
		}
		return true
	case SelectingRealm:
		y, ok := b.(SelectingRealm)
		return ok && x.BaseURL == y.BaseURL && x.App == y.App && equalRealm(x.KnownRealm, y.KnownRealm)
	case Complete:
		y, ok := b.(Complete)
		return ok && x.Config.Equal(y.Config)
	default:
		return false
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
