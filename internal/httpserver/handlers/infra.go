package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/onboard/internal/httpserver/deps"
)

type componentStatus struct {
	OK        bool   `json:"ok"`
	Mode      string `json:"mode,omitempty"`
	Sessions  *int   `json:"sessions,omitempty"`
	LastSweep string `json:"last_sweep,omitempty"`
	Error     string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of the session store and the manifest source.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		components := map[string]componentStatus{
			"sessions":  sessionStatus(ctx, d),
			"manifests": manifestStatus(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

func overallStatus(components map[string]componentStatus) string {
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "ok"
}

func sessionStatus(ctx context.Context, d deps.Deps) componentStatus {
	switch {
	case d.RedisStore != nil:
		count, err := d.RedisStore.CountSessions(ctx)
		if err != nil {
			return componentStatus{OK: false, Mode: d.RedisStore.Mode(), Error: err.Error()}
		}
		return componentStatus{OK: true, Mode: d.RedisStore.Mode(), Sessions: &count}

	case d.MemoryIndex != nil:
		count := d.MemoryIndex.Count()
		lastSweep := "never"
		if t := d.MemoryIndex.GetLastSweep(); !t.IsZero() {
			lastSweep = t.Format(time.RFC3339)
		}
		return componentStatus{OK: true, Mode: d.MemoryIndex.Mode(), Sessions: &count, LastSweep: lastSweep}

	default:
		return componentStatus{OK: false, Error: "no session store configured"}
	}
}

func manifestStatus(d deps.Deps) componentStatus {
	mode := d.ManifestSource
	if d.RedisStore != nil {
		mode += "+redis-cache"
	}
	return componentStatus{OK: d.ManifestSource != "", Mode: mode}
}
