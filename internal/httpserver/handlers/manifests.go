package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/onboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/onboard/internal/logger"
)

type flushResponse struct {
	Cache   string `json:"cache"`
	Flushed int    `json:"flushed"`
}

// FlushManifests drops cached manifests so the next lookup fetches them again.
// With ?base_url=... only that deployment is dropped.
func FlushManifests(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.RedisStore == nil {
			writeJSON(w, http.StatusOK, flushResponse{Cache: "disabled"})
			return
		}

		if baseURL := strings.TrimSpace(r.URL.Query().Get("base_url")); baseURL != "" {
			n, err := d.RedisStore.InvalidateManifest(r.Context(), baseURL)
			if err != nil {
				fail(w, d, err)
				return
			}
			d.Logger.Info("manifest invalidated via endpoint",
				logger.String("base_url", baseURL),
				logger.Int("flushed", n),
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusOK, flushResponse{Cache: d.RedisStore.Mode(), Flushed: n})
			return
		}

		n, err := d.RedisStore.FlushManifests(r.Context())
		if err != nil {
			fail(w, d, err)
			return
		}
		d.Logger.Info("manifest cache flushed via endpoint",
			logger.Int("flushed", n),
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusOK, flushResponse{Cache: d.RedisStore.Mode(), Flushed: n})
	}
}
