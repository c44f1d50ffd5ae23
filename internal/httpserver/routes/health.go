package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/onboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/onboard/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/onboard/internal/httpserver/mw"
)

func init() { Register(registerHealth) }

// Probes stay reachable on any Host header, only the source address is checked.
func registerHealth(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		r.Get("/healthz", handlers.Healthz(d))
		r.Get("/readyz", handlers.Readyz(d))
	})
}
