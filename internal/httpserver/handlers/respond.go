package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/onboard/internal/domain"
	"github.com/MrSnakeDoc/onboard/internal/onboarding"
)

const maxBodyBytes = 16 << 10

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var (
	errBadBody  = errors.New("request body must be a JSON object")
	errInternal = errors.New("internal error")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// classify maps service errors to an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, "bad_request"
	case onboarding.IsNotFound(err):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrEmptyDomain):
		return http.StatusBadRequest, "empty_domain"
	case errors.Is(err, domain.ErrEmptyRealm):
		return http.StatusBadRequest, "empty_realm"
	case errors.Is(err, domain.ErrUnknownApp):
		return http.StatusUnprocessableEntity, "unknown_app"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decodeBody reads a single JSON object into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Join(errBadBody, err)
	}
	return nil
}
