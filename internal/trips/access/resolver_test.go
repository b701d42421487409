package access

import (
	"context"
	"errors"
	"testing"

	"github.com/tripfolio/tripfolio/internal/storage"
)

type fakeGrantReader struct {
	grants map[string]storage.TripGrant
	err    error
}

func (f *fakeGrantReader) GetTripGrant(ctx context.Context, accountID string, tripID string) (storage.TripGrant, error) {
	if f.err != nil {
		return storage.TripGrant{}, f.err
	}
	grant, ok := f.grants[accountID+"/"+tripID]
	if !ok {
		return storage.TripGrant{}, storage.ErrNotFound
	}
	return grant, nil
}

func TestCheckAccessAdminBypassesGrants(t *testing.T) {
	resolver := NewResolver(&fakeGrantReader{})
	allowed, err := resolver.CheckAccess(context.Background(), "admin-1", true, "trip-1", RoleEditor)
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if !allowed {
		t.Fatal("expected admin to be allowed without a grant")
	}
}

func TestCheckAccessRoleMatrix(t *testing.T) {
	reader := &fakeGrantReader{grants: map[string]storage.TripGrant{
		"viewer-1/trip-1": {AccountID: "viewer-1", TripID: "trip-1", Role: "VIEWER"},
		"editor-1/trip-1": {AccountID: "editor-1", TripID: "trip-1", Role: "EDITOR"},
	}}
	resolver := NewResolver(reader)

	cases := []struct {
		name      string
		accountID string
		minRole   Role
		want      bool
	}{
		{"viewer meets viewer", "viewer-1", RoleViewer, true},
		{"viewer denied editor", "viewer-1", RoleEditor, false},
		{"editor meets viewer", "editor-1", RoleViewer, true},
		{"editor meets editor", "editor-1", RoleEditor, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allowed, err := resolver.CheckAccess(context.Background(), tc.accountID, false, "trip-1", tc.minRole)
			if err != nil {
				t.Fatalf("check access: %v", err)
			}
			if allowed != tc.want {
				t.Fatalf("allowed = %v, want %v", allowed, tc.want)
			}
		})
	}
}

func TestCheckAccessMissingGrantIsFalseNotError(t *testing.T) {
	resolver := NewResolver(&fakeGrantReader{})
	allowed, err := resolver.CheckAccess(context.Background(), "nobody", false, "trip-1", RoleViewer)
	if err != nil {
		t.Fatalf("expected no error for missing grant, got %v", err)
	}
	if allowed {
		t.Fatal("expected missing grant to deny access")
	}
}

func TestCheckAccessUnknownRoleDenied(t *testing.T) {
	reader := &fakeGrantReader{grants: map[string]storage.TripGrant{
		"acct-1/trip-1": {AccountID: "acct-1", TripID: "trip-1", Role: "OWNER"},
	}}
	resolver := NewResolver(reader)
	allowed, err := resolver.CheckAccess(context.Background(), "acct-1", false, "trip-1", RoleViewer)
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if allowed {
		t.Fatal("expected grant with unknown role to deny access")
	}
}

func TestCheckAccessEmptyIdentifiers(t *testing.T) {
	resolver := NewResolver(&fakeGrantReader{})
	allowed, err := resolver.CheckAccess(context.Background(), " ", false, "trip-1", RoleViewer)
	if err != nil || allowed {
		t.Fatalf("expected plain deny for empty account id, got %v %v", allowed, err)
	}
	allowed, err = resolver.CheckAccess(context.Background(), "acct-1", false, " ", RoleViewer)
	if err != nil || allowed {
		t.Fatalf("expected plain deny for empty trip id, got %v %v", allowed, err)
	}
}

func TestCheckAccessPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("db down")
	resolver := NewResolver(&fakeGrantReader{err: storeErr})
	_, err := resolver.CheckAccess(context.Background(), "acct-1", false, "trip-1", RoleViewer)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error propagated, got %v", err)
	}
}
