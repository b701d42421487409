package web

import (
	"net/http"
	"time"

	apperrors "github.com/tripfolio/tripfolio/internal/platform/errors"
	"github.com/tripfolio/tripfolio/internal/storage"
	"github.com/tripfolio/tripfolio/internal/trips/access"
	"github.com/tripfolio/tripfolio/internal/trips/invite"
)

type createInviteRequest struct {
	Role       string   `json:"role"`
	TripIDs    []string `json:"trip_ids"`
	TTLSeconds int64    `json:"ttl_seconds"`
	Email      string   `json:"email"`
}

type inviteResponse struct {
	Code      string    `json:"code"`
	Role      string    `json:"role"`
	TripIDs   []string  `json:"trip_ids"`
	ExpiresAt time.Time `json:"expires_at"`
}

type redeemInviteRequest struct {
	Code string `json:"code"`
}

type grantResponse struct {
	TripID string `json:"trip_id"`
	Role   string `json:"role"`
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok || !claims.IsAdmin {
		s.writeError(w, http.StatusForbidden, "administrator privilege required")
		return
	}

	var request createInviteRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.ledger.CreateInvite(r.Context(), invite.CreateInviteInput{
		CreatedBy: claims.AccountID,
		Role:      access.RoleFromLabel(request.Role),
		TripIDs:   request.TripIDs,
		TTL:       time.Duration(request.TTLSeconds) * time.Second,
		Email:     request.Email,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, inviteResponse{
		Code:      created.Code,
		Role:      created.Role,
		TripIDs:   created.TripIDs,
		ExpiresAt: created.ExpiresAt,
	})
}

// handleRedeemInvite redeems an invite for the authenticated account. Unknown
// and expired codes share one response so a caller cannot probe which codes
// exist; a code that was already redeemed is reported distinctly since the
// caller held it.
func (s *Server) handleRedeemInvite(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var request redeemInviteRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	grants, err := s.ledger.Redeem(r.Context(), request.Code, claims.AccountID)
	if err != nil {
		switch apperrors.GetCode(err) {
		case apperrors.CodeNotFound, apperrors.CodeInviteNotFound, apperrors.CodeInviteExpired:
			s.writeError(w, http.StatusNotFound, "invite not found or expired")
		default:
			s.writeDomainError(w, err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, grantResponses(grants))
}

func grantResponses(grants []storage.TripGrant) []grantResponse {
	responses := make([]grantResponse, 0, len(grants))
	for _, grant := range grants {
		responses = append(responses, grantResponse{TripID: grant.TripID, Role: grant.Role})
	}
	return responses
}
