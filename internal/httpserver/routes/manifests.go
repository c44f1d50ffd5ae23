package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/onboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/onboard/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/onboard/internal/httpserver/mw"
)

func init() { Register(registerManifests) }

func registerManifests(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger)).Post("/manifests/flush", handlers.FlushManifests(d))
}
