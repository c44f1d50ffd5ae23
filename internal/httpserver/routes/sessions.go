package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/onboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/onboard/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/onboard/internal/httpserver/mw"
)

func init() { Register(registerSessions) }

func registerSessions(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateLimitBurst,
		RefillPerIPPerMin: d.RateLimitPerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))

		r.With(limit).Post("/", handlers.StartSession(d))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.GetSession(d))
			r.Delete("/", handlers.DeleteSession(d))
			r.Post("/domain", handlers.SetDomain(d))
			r.Post("/app", handlers.SetApp(d))
			r.Post("/realm", handlers.SetRealm(d))
			r.Post("/restart", handlers.RestartSession(d))
		})
	})
}
