package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateEnvelopeSurvivesJSON(t *testing.T) {
	states := []State{
		SelectingDomain{},
		SelectingDomain{Domain: "nope", Failure: &LookupError{
			Domain: "nope", BaseURL: "https://nope.openremote.app", Err: errors.New("manifest not found"),
		}},
		SelectingDomain{Domain: "void", Failure: &LookupError{Domain: "void", BaseURL: "https://void.openremote.app"}},
		SelectingApp{
			BaseURL: "https://test4.openremote.app",
			Apps:    []App{{Name: "Console 1"}, {Name: "Console 2", Realm: Realm("master")}},
			Realms:  RealmPolicy{Selectable: true, Default: Realm("master")},
		},
		SelectingApp{BaseURL: "https://test5.openremote.app", AllowCustom: true},
		SelectingRealm{BaseURL: "https://test0.openremote.app", App: "manager", KnownRealm: Realm("master")},
		Complete{Config: ProjectConfig{BaseURL: "https://test1.openremote.app", App: "manager"}},
	}

	for _, s := range states {
		t.Run(string(s.Phase()), func(t *testing.T) {
			data, err := json.Marshal(EncodeState(s))
			require.NoError(t, err)

			var env StateEnvelope
			require.NoError(t, json.Unmarshal(data, &env))

			got, err := DecodeState(env)
			require.NoError(t, err)
			assert.Truef(t, Equal(s, got), "decoded %#v from %s", got, data)
		})
	}
}

func TestCompleteEnvelopeKeepsNullRealm(t *testing.T) {
	data, err := json.Marshal(EncodeState(Complete{Config: ProjectConfig{BaseURL: "u", App: "a"}}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"complete","config":{"base_url":"u","app":"a","realm":null}}`, string(data))
}

func TestDecodeStateRejectsIncompleteEnvelopes(t *testing.T) {
	tests := []StateEnvelope{
		{Phase: "bogus"},
		{Phase: PhaseSelectingApp},
		{Phase: PhaseSelectingRealm, BaseURL: "u"},
		{Phase: PhaseComplete},
	}

	for _, env := range tests {
		t.Run(string(env.Phase), func(t *testing.T) {
			_, err := DecodeState(env)
			assert.Error(t, err)
		})
	}
}
