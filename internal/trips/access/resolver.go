package access

import (
	"context"
	"errors"
	"strings"

	"github.com/tripfolio/tripfolio/internal/storage"
)

// GrantReader is the read-only slice of grant storage the resolver needs.
type GrantReader interface {
	GetTripGrant(ctx context.Context, accountID string, tripID string) (storage.TripGrant, error)
}

// Resolver answers trip access questions from stored grants.
//
// CheckAccess performs no writes and is safe to call on every request.
type Resolver struct {
	grants GrantReader
}

// NewResolver builds a resolver over a grant store.
func NewResolver(grants GrantReader) *Resolver {
	return &Resolver{grants: grants}
}

// CheckAccess reports whether the account may act on the trip at the required
// role level. Administrators bypass grant checks entirely; everyone else needs
// a grant whose role satisfies minRole. A missing grant is a plain false, not
// an error.
func (r *Resolver) CheckAccess(ctx context.Context, accountID string, isAdmin bool, tripID string, minRole Role) (bool, error) {
	if r == nil || r.grants == nil {
		return false, errors.New("grant store is not configured")
	}
	if isAdmin {
		return true, nil
	}
	accountID = strings.TrimSpace(accountID)
	tripID = strings.TrimSpace(tripID)
	if accountID == "" || tripID == "" {
		return false, nil
	}

	grant, err := r.grants.GetTripGrant(ctx, accountID, tripID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return RoleFromLabel(grant.Role).Satisfies(minRole), nil
}
