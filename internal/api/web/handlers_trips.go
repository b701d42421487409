package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tripfolio/tripfolio/internal/storage"
	"github.com/tripfolio/tripfolio/internal/trips/access"
)

type createTripRequest struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type updateTripRequest struct {
	Title string `json:"title"`
}

type tripResponse struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type upsertGrantRequest struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok || !claims.IsAdmin {
		s.writeError(w, http.StatusForbidden, "administrator privilege required")
		return
	}

	var request createTripRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	slug := strings.ToLower(strings.TrimSpace(request.Slug))
	if slug == "" {
		s.writeError(w, http.StatusBadRequest, "trip slug is required")
		return
	}

	tripID, err := s.idGenerator()
	if err != nil {
		s.logger.Printf("web: generate trip id: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	trip := storage.Trip{
		ID:        tripID,
		Slug:      slug,
		Title:     strings.TrimSpace(request.Title),
		CreatedBy: claims.AccountID,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.trips.PutTrip(r.Context(), trip); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tripView(trip))
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	s.serveTrip(w, r, access.RoleViewer, func(w http.ResponseWriter, r *http.Request, trip storage.Trip) {
		s.writeJSON(w, http.StatusOK, tripView(trip))
	})
}

func (s *Server) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	s.serveTrip(w, r, access.RoleEditor, func(w http.ResponseWriter, r *http.Request, trip storage.Trip) {
		var request updateTripRequest
		if err := decodeJSON(r, &request); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		trip.Title = strings.TrimSpace(request.Title)
		if err := s.trips.PutTrip(r.Context(), trip); err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, tripView(trip))
	})
}

func (s *Server) handleUpsertGrant(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok || !claims.IsAdmin {
		s.writeError(w, http.StatusForbidden, "administrator privilege required")
		return
	}

	trip, err := s.resolveTrip(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	var request upsertGrantRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role := access.RoleFromLabel(request.Role)
	if role == access.RoleUnspecified {
		s.writeError(w, http.StatusBadRequest, "role must be viewer or editor")
		return
	}
	accountID := strings.TrimSpace(request.AccountID)
	if accountID == "" {
		s.writeError(w, http.StatusBadRequest, "account id is required")
		return
	}
	if _, err := s.accounts.GetAccount(r.Context(), accountID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	now := s.clock().UTC()
	grant := storage.TripGrant{
		AccountID: accountID,
		TripID:    trip.ID,
		Role:      access.RoleLabel(role),
		GrantedBy: claims.AccountID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.grants.UpsertTripGrant(r.Context(), grant); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, grantResponse{TripID: grant.TripID, Role: grant.Role})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	found, err := s.accounts.GetAccount(r.Context(), claims.AccountID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		IsAdmin     bool   `json:"is_admin"`
	}{
		ID:          found.ID,
		Email:       found.Email,
		DisplayName: found.DisplayName,
		IsAdmin:     found.IsAdmin,
	})
}

func (s *Server) handleMyCredentials(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	credentials, err := s.ceremonies.Credentials(r.Context(), claims.AccountID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	type credentialView struct {
		CredentialID string     `json:"credential_id"`
		Transports   string     `json:"transports,omitempty"`
		CreatedAt    time.Time  `json:"created_at"`
		LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	}
	views := make([]credentialView, 0, len(credentials))
	for _, credential := range credentials {
		views = append(views, credentialView{
			CredentialID: credential.CredentialID,
			Transports:   credential.Transports,
			CreatedAt:    credential.CreatedAt,
			LastUsedAt:   credential.LastUsedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleMyGrants(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	grants, err := s.grants.ListTripGrantsByAccount(r.Context(), claims.AccountID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, grantResponses(grants))
}

// serveTrip resolves the path's trip, enforces the minimum role, and hands the
// trip to the handler. Denied access and a missing trip look identical so the
// trip id space cannot be probed.
func (s *Server) serveTrip(w http.ResponseWriter, r *http.Request, minRole access.Role, next func(http.ResponseWriter, *http.Request, storage.Trip)) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	trip, err := s.resolveTrip(r)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "trip not found")
			return
		}
		s.writeDomainError(w, err)
		return
	}

	allowed, err := s.resolver.CheckAccess(r.Context(), claims.AccountID, claims.IsAdmin, trip.ID, minRole)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !allowed {
		s.writeError(w, http.StatusNotFound, "trip not found")
		return
	}
	next(w, r, trip)
}

// resolveTrip looks the path segment up as an id first, then as a slug.
func (s *Server) resolveTrip(r *http.Request) (storage.Trip, error) {
	key := strings.TrimSpace(r.PathValue("trip"))
	if key == "" {
		return storage.Trip{}, storage.ErrNotFound
	}
	trip, err := s.trips.GetTrip(r.Context(), key)
	if err == nil {
		return trip, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.Trip{}, err
	}
	return s.trips.GetTripBySlug(r.Context(), strings.ToLower(key))
}

func tripView(trip storage.Trip) tripResponse {
	return tripResponse{
		ID:        trip.ID,
		Slug:      trip.Slug,
		Title:     trip.Title,
		CreatedBy: trip.CreatedBy,
		CreatedAt: trip.CreatedAt,
	}
}
