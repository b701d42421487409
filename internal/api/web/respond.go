package web

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/tripfolio/tripfolio/internal/platform/errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("web: encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

// writeCeremonyError collapses every ceremony failure into one generic
// unauthorized response. The specific cause is logged server-side only, so a
// caller cannot distinguish an unknown email from a bad signature or a
// replayed counter.
func (s *Server) writeCeremonyError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	if code.IsCeremonyFailure() {
		s.logger.Printf("web: ceremony failure (%s): %v", code, err)
		s.writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}
	s.writeDomainError(w, err)
}

// writeDomainError maps a domain error to its HTTP status. Unknown errors are
// logged and masked.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Printf("web: internal error: %v", err)
		s.writeError(w, status, "internal error")
		return
	}
	s.writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}
