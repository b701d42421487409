package web

import (
	"encoding/json"
	"net/http"

	"github.com/tripfolio/tripfolio/internal/account"
)

type beginRegistrationRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type beginLoginRequest struct {
	Email string `json:"email"`
}

type beginResponse struct {
	CeremonyID string          `json:"ceremony_id"`
	Options    json.RawMessage `json:"options"`
}

type finishRequest struct {
	CeremonyID string          `json:"ceremony_id"`
	Response   json.RawMessage `json:"response"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
	AccountID string `json:"account_id"`
	IsAdmin   bool   `json:"is_admin"`
}

func (s *Server) handleRegisterBegin(w http.ResponseWriter, r *http.Request) {
	var request beginRegistrationRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	begin, err := s.ceremonies.BeginRegistration(r.Context(), request.Email, request.DisplayName)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, beginResponse{
		CeremonyID: begin.CeremonyID,
		Options:    begin.OptionsJSON,
	})
}

func (s *Server) handleRegisterFinish(w http.ResponseWriter, r *http.Request) {
	var request finishRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.ceremonies.FinishRegistration(r.Context(), request.CeremonyID, request.Response)
	if err != nil {
		s.writeCeremonyError(w, err)
		return
	}
	s.issueSession(w, created)
}

func (s *Server) handleLoginBegin(w http.ResponseWriter, r *http.Request) {
	var request beginLoginRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	begin, err := s.ceremonies.BeginLogin(r.Context(), request.Email)
	if err != nil {
		s.writeCeremonyError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, beginResponse{
		CeremonyID: begin.CeremonyID,
		Options:    begin.OptionsJSON,
	})
}

func (s *Server) handleLoginFinish(w http.ResponseWriter, r *http.Request) {
	var request finishRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	found, err := s.ceremonies.FinishLogin(r.Context(), request.CeremonyID, request.Response)
	if err != nil {
		s.writeCeremonyError(w, err)
		return
	}
	s.issueSession(w, found)
}

// issueSession mints a session token for a ceremony that finished
// successfully. The admin claim is frozen into the token here.
func (s *Server) issueSession(w http.ResponseWriter, holder account.Account) {
	token, err := s.sessions.Issue(holder.ID, holder.IsAdmin, s.sessionTTL)
	if err != nil {
		s.logger.Printf("web: issue session token: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.sessionTTL.Seconds()),
		AccountID: holder.ID,
		IsAdmin:   holder.IsAdmin,
	})
}
