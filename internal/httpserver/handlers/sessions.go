package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/onboard/internal/domain"
	"github.com/MrSnakeDoc/onboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/onboard/internal/logger"
)

type sessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Lookups   int       `json:"lookups"`
	domain.StateEnvelope
}

type domainRequest struct {
	Domain string `json:"domain"`
}

type appRequest struct {
	App string `json:"app"`
}

type realmRequest struct {
	Realm *string `json:"realm"`
}

func toResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:            s.ID,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Lookups:       s.Lookups,
		StateEnvelope: domain.EncodeState(s.State),
	}
}

// StartSession opens a new onboarding session.
func StartSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := d.Service.Start(r.Context())
		if err != nil {
			fail(w, d, err)
			return
		}
		w.Header().Set("Location", "/api/sessions/"+session.ID)
		writeJSON(w, http.StatusCreated, toResponse(session))
	}
}

// GetSession returns the session's current state.
func GetSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := d.Service.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			fail(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(session))
	}
}

// DeleteSession discards a session.
func DeleteSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			fail(w, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SetDomain submits the deployment domain. A domain that does not resolve is
// not an error: the session stays in selecting_domain with a failure.
func SetDomain(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domainRequest
		if err := decodeBody(r, &req); err != nil {
			fail(w, d, err)
			return
		}
		session, err := d.Service.SetDomain(r.Context(), chi.URLParam(r, "id"), req.Domain)
		respond(w, d, session, err)
	}
}

// SetApp selects an app.
func SetApp(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appRequest
		if err := decodeBody(r, &req); err != nil {
			fail(w, d, err)
			return
		}
		session, err := d.Service.SetApp(r.Context(), chi.URLParam(r, "id"), req.App)
		respond(w, d, session, err)
	}
}

// SetRealm selects a realm, or none when realm is null or absent.
func SetRealm(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req realmRequest
		if err := decodeBody(r, &req); err != nil {
			fail(w, d, err)
			return
		}
		session, err := d.Service.SetRealm(r.Context(), chi.URLParam(r, "id"), req.Realm)
		respond(w, d, session, err)
	}
}

// RestartSession goes back to domain selection.
func RestartSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := d.Service.Restart(r.Context(), chi.URLParam(r, "id"))
		respond(w, d, session, err)
	}
}

func respond(w http.ResponseWriter, d deps.Deps, session *domain.Session, err error) {
	if err != nil {
		fail(w, d, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(session))
}

func fail(w http.ResponseWriter, d deps.Deps, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		d.Logger.Error("session request failed", logger.Error(err))
		err = errInternal
	}
	writeError(w, status, code, err)
}
