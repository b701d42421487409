// Package invite provides trip invite creation and redemption.
package invite

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/tripfolio/tripfolio/internal/platform/errors"
	"github.com/tripfolio/tripfolio/internal/trips/access"
)

var (
	// ErrEmptyTripSet indicates an invite without any target trips.
	ErrEmptyTripSet = apperrors.New(apperrors.CodeEmptyTripSet, "invite requires at least one trip")
	// ErrInvalidRole indicates an invite role outside the closed role set.
	ErrInvalidRole = apperrors.New(apperrors.CodeInviteInvalidRole, "invite role must be viewer or editor")
)

const codeBytes = 16

// CreateInviteInput describes the metadata needed to create an invite.
type CreateInviteInput struct {
	CreatedBy string
	Role      access.Role
	TripIDs   []string
	TTL       time.Duration
	Email     string
}

// NewCode generates a cryptographically random, URL-safe invite code.
func NewCode() (string, error) {
	raw := make([]byte, codeBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NormalizeCreateInviteInput trims and validates invite input metadata.
// The trip set is deduplicated; its membership is fixed at creation time.
func NormalizeCreateInviteInput(input CreateInviteInput) (CreateInviteInput, error) {
	input.CreatedBy = strings.TrimSpace(input.CreatedBy)
	if input.CreatedBy == "" {
		return CreateInviteInput{}, fmt.Errorf("creator account id is required")
	}
	if input.Role != access.RoleViewer && input.Role != access.RoleEditor {
		return CreateInviteInput{}, ErrInvalidRole
	}

	seen := make(map[string]bool, len(input.TripIDs))
	tripIDs := make([]string, 0, len(input.TripIDs))
	for _, tripID := range input.TripIDs {
		tripID = strings.TrimSpace(tripID)
		if tripID == "" || seen[tripID] {
			continue
		}
		seen[tripID] = true
		tripIDs = append(tripIDs, tripID)
	}
	if len(tripIDs) == 0 {
		return CreateInviteInput{}, ErrEmptyTripSet
	}
	input.TripIDs = tripIDs

	if input.TTL <= 0 {
		input.TTL = 72 * time.Hour
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	return input, nil
}
