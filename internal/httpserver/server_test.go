package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/onboard/internal/domain"
	"github.com/MrSnakeDoc/onboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/onboard/internal/index"
	"github.com/MrSnakeDoc/onboard/internal/logger"
	"github.com/MrSnakeDoc/onboard/internal/manifest"
	"github.com/MrSnakeDoc/onboard/internal/onboarding"
	redisstore "github.com/MrSnakeDoc/onboard/internal/store/redis"
)

type apiSession struct {
	ID      string `json:"id"`
	Lookups int    `json:"lookups"`
	domain.StateEnvelope
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func newTestAPI(t *testing.T, mutate ...func(*deps.Deps)) *httptest.Server {
	t.Helper()

	log := logger.NewNop()
	memIndex := index.NewMemoryIndex()
	d := deps.Deps{
		Logger:          log,
		StartTime:       time.Now(),
		Version:         "test",
		Service:         onboarding.NewService(memIndex, manifest.NewFixtureFetcher(), domain.DefaultOptions(), log),
		MemoryIndex:     memIndex,
		ManifestSource:  "fixtures",
		RateLimitBurst:  100,
		RateLimitPerMin: 100,
	}
	for _, m := range mutate {
		m(&d)
	}

	ts := httptest.NewServer(NewRouter(d, 5*time.Second))
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func start(t *testing.T, ts *httptest.Server) apiSession {
	t.Helper()
	resp := call(t, ts, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	s := decode[apiSession](t, resp)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "/api/sessions/"+s.ID, resp.Header.Get("Location"))
	return s
}

func TestAPIFullFlow(t *testing.T) {
	ts := newTestAPI(t)
	s := start(t, ts)
	assert.Equal(t, domain.PhaseSelectingDomain, s.Phase)

	resp := call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/domain", map[string]string{"domain": "test4"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s = decode[apiSession](t, resp)
	assert.Equal(t, domain.PhaseSelectingApp, s.Phase)
	assert.Equal(t, "https://test4.openremote.app", s.BaseURL)
	assert.NotEmpty(t, s.Apps)

	resp = call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/app", map[string]string{"app": "Console 2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s = decode[apiSession](t, resp)
	assert.Equal(t, domain.PhaseSelectingRealm, s.Phase)
	assert.Equal(t, "Console 2", s.App)

	resp = call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/realm", map[string]any{"realm": "master"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s = decode[apiSession](t, resp)
	require.Equal(t, domain.PhaseComplete, s.Phase)
	require.NotNil(t, s.Config)
	assert.Equal(t, "https://test4.openremote.app", s.Config.BaseURL)
	assert.Equal(t, "Console 2", s.Config.App)
	require.NotNil(t, s.Config.Realm)
	assert.Equal(t, "master", *s.Config.Realm)

	resp = call(t, ts, http.MethodGet, "/api/sessions/"+s.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.PhaseComplete, decode[apiSession](t, resp).Phase)
}

func TestAPINullRealm(t *testing.T) {
	ts := newTestAPI(t)
	s := start(t, ts)

	call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/domain", map[string]string{"domain": "test4"})
	call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/app", map[string]string{"app": "Console 1"})

	resp := call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/realm", `{"realm": null}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s = decode[apiSession](t, resp)
	require.Equal(t, domain.PhaseComplete, s.Phase)
	assert.Nil(t, s.Config.Realm)
}

func TestAPILookupFailureIsRecoverable(t *testing.T) {
	ts := newTestAPI(t)
	s := start(t, ts)

	resp := call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/domain", map[string]string{"domain": "nowhere"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s = decode[apiSession](t, resp)
	assert.Equal(t, domain.PhaseSelectingDomain, s.Phase)
	require.NotNil(t, s.Failure)
	assert.Contains(t, s.Failure.Message, "domain not recognized")
	assert.Equal(t, "https://nowhere.openremote.app", s.Failure.BaseURL)

	resp = call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/domain", map[string]string{"domain": "test1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s = decode[apiSession](t, resp)
	assert.Equal(t, domain.PhaseComplete, s.Phase)
	assert.Equal(t, 2, s.Lookups)
}

func TestAPIErrorMapping(t *testing.T) {
	ts := newTestAPI(t)

	tests := []struct {
		name     string
		setup    []string // domain, then app
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{
			name:     "malformed body",
			path:     "/domain",
			body:     `{"domain":`,
			wantCode: http.StatusBadRequest,
			wantErr:  "bad_request",
		},
		{
			name:     "empty domain",
			path:     "/domain",
			body:     map[string]string{"domain": "  "},
			wantCode: http.StatusBadRequest,
			wantErr:  "empty_domain",
		},
		{
			name:     "app before domain",
			path:     "/app",
			body:     map[string]string{"app": "Console 1"},
			wantCode: http.StatusConflict,
			wantErr:  "invalid_transition",
		},
		{
			name:     "unknown app",
			setup:    []string{"test4"},
			path:     "/app",
			body:     map[string]string{"app": "Nope"},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "unknown_app",
		},
		{
			name:     "empty realm",
			setup:    []string{"test4", "Console 1"},
			path:     "/realm",
			body:     map[string]string{"realm": ""},
			wantCode: http.StatusBadRequest,
			wantErr:  "empty_realm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := start(t, ts)
			if len(tt.setup) > 0 {
				resp := call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/domain", map[string]string{"domain": tt.setup[0]})
				require.Equal(t, http.StatusOK, resp.StatusCode)
			}
			if len(tt.setup) > 1 {
				resp := call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/app", map[string]string{"app": tt.setup[1]})
				require.Equal(t, http.StatusOK, resp.StatusCode)
			}

			resp := call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+tt.path, tt.body)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			e := decode[apiError](t, resp)
			assert.Equal(t, tt.wantErr, e.Code)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestAPIRestartAndDelete(t *testing.T) {
	ts := newTestAPI(t)
	s := start(t, ts)

	call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/domain", map[string]string{"domain": "test0"})

	resp := call(t, ts, http.MethodPost, "/api/sessions/"+s.ID+"/restart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.PhaseSelectingDomain, decode[apiSession](t, resp).Phase)

	resp = call(t, ts, http.MethodDelete, "/api/sessions/"+s.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = call(t, ts, http.MethodGet, "/api/sessions/"+s.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session_not_found", decode[apiError](t, resp).Code)
}

func TestAPIRateLimitsSessionCreation(t *testing.T) {
	ts := newTestAPI(t, func(d *deps.Deps) {
		d.RateLimitBurst = 1
		d.RateLimitPerMin = 1
	})

	start(t, ts)
	resp := call(t, ts, http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestAPI(t)

	resp := call(t, ts, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test", decode[map[string]any](t, resp)["version"])

	resp = call(t, ts, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode[map[string]any](t, resp)["ready"])

	start(t, ts)
	resp = call(t, ts, http.MethodGet, "/infra", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	infra := decode[struct {
		Status     string `json:"status"`
		Components map[string]struct {
			OK       bool   `json:"ok"`
			Mode     string `json:"mode"`
			Sessions *int   `json:"sessions"`
		} `json:"components"`
	}](t, resp)
	assert.Equal(t, "ok", infra.Status)
	assert.Equal(t, "memory", infra.Components["sessions"].Mode)
	require.NotNil(t, infra.Components["sessions"].Sessions)
	assert.Equal(t, 1, *infra.Components["sessions"].Sessions)
	assert.Equal(t, "fixtures", infra.Components["manifests"].Mode)
}

func TestFlushManifestsWithoutCache(t *testing.T) {
	ts := newTestAPI(t)

	resp := call(t, ts, http.MethodPost, "/manifests/flush", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "disabled", body["cache"])
	assert.EqualValues(t, 0, body["flushed"])
}

func TestFlushSingleManifestReportsDeleted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test requiring redis")
	}
	addr := os.Getenv("ONBOARD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ONBOARD_TEST_REDIS_ADDR not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}

	store := redisstore.NewStore(client, time.Minute)
	ts := newTestAPI(t, func(d *deps.Deps) { d.RedisStore = store })

	baseURL := "https://flush-" + time.Now().Format("150405.000000") + ".openremote.app"
	require.NoError(t, store.PutManifest(ctx, baseURL, &domain.Manifest{Realms: domain.RealmPolicy{Selectable: true}}, time.Minute))

	path := "/manifests/flush?base_url=" + url.QueryEscape(baseURL)
	for _, want := range []int{1, 0} {
		resp := call(t, ts, http.MethodPost, path, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode[map[string]any](t, resp)
		assert.Equal(t, "redis", body["cache"])
		assert.EqualValues(t, want, body["flushed"])
	}
}

func TestHealthEndpointsAreCIDRGated(t *testing.T) {
	ts := newTestAPI(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
	})

	resp := call(t, ts, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestAPI(t, func(d *deps.Deps) {
		d.CORSOrigins = []string{"https://console.example.org"}
	})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://console.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "https://console.example.org", resp.Header.Get("Access-Control-Allow-Origin"))
}
