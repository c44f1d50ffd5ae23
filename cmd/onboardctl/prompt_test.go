package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/onboard/internal/domain"
	"github.com/MrSnakeDoc/onboard/internal/manifest"
)

func runPrompt(t *testing.T, input string) (domain.ProjectConfig, string, error) {
	t.Helper()
	r := domain.NewResolver(manifest.NewFixtureFetcher(), domain.DefaultOptions())
	var out bytes.Buffer
	cfg, err := newPrompter(r, strings.NewReader(input), &out, false).run(context.Background())
	return cfg, out.String(), err
}

func TestPromptPicksAppByNumber(t *testing.T) {
	cfg, out, err := runPrompt(t, "test4\n2\nmaster\n")
	require.NoError(t, err)

	assert.Equal(t, "https://test4.openremote.app", cfg.BaseURL)
	assert.Equal(t, "Console 2", cfg.App)
	assert.Equal(t, "master", cfg.RealmName())
	assert.Contains(t, out, "2) Console 2")
}

func TestPromptRecoversFromUnknownDomain(t *testing.T) {
	cfg, out, err := runPrompt(t, "\nnowhere\ntest1\n")
	require.NoError(t, err)

	assert.Contains(t, out, "domain must not be empty")
	assert.Contains(t, out, "domain not recognized")
	assert.Equal(t, "https://test1.openremote.app", cfg.BaseURL)
	assert.Equal(t, domain.DefaultAppName, cfg.App)
	assert.Nil(t, cfg.Realm)
}

func TestPromptRejectsUnknownAppThenRestarts(t *testing.T) {
	cfg, out, err := runPrompt(t, "test4\nNope\n:restart\ntest1\n")
	require.NoError(t, err)

	assert.Contains(t, out, "app is not among the offered choices")
	assert.Equal(t, "https://test1.openremote.app", cfg.BaseURL)
}

func TestPromptRealmDefaults(t *testing.T) {
	// Console 1 carries no realm, so "-" completes without one.
	cfg, _, err := runPrompt(t, "test4\nConsole 1\n-\n")
	require.NoError(t, err)
	assert.Nil(t, cfg.Realm)
}

func TestPromptEndOfInput(t *testing.T) {
	_, _, err := runPrompt(t, "test4\n")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPromptQuietWritesNothing(t *testing.T) {
	r := domain.NewResolver(manifest.NewFixtureFetcher(), domain.DefaultOptions())
	var out bytes.Buffer
	cfg, err := newPrompter(r, strings.NewReader("test0\n\n"), &out, true).run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, "https://test0.openremote.app", cfg.BaseURL)
}

func TestRootCmdVersion(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "onboardctl ")
}

func TestRootCmdRejectsFixturesWithDir(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--fixtures", "--dir", t.TempDir()})
	assert.Error(t, cmd.Execute())
}
