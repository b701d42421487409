package invite

import (
	"errors"
	"testing"
	"time"

	"github.com/tripfolio/tripfolio/internal/trips/access"
)

func TestNewCodeIsURLSafeAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := NewCode()
		if err != nil {
			t.Fatalf("new code: %v", err)
		}
		if len(code) == 0 {
			t.Fatal("expected non-empty code")
		}
		for _, r := range code {
			if r == '+' || r == '/' || r == '=' {
				t.Fatalf("code %q is not URL safe", code)
			}
		}
		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true
	}
}

func TestNormalizeCreateInviteInputDeduplicatesTrips(t *testing.T) {
	normalized, err := NormalizeCreateInviteInput(CreateInviteInput{
		CreatedBy: "admin-1",
		Role:      access.RoleViewer,
		TripIDs:   []string{"trip-1", " trip-1 ", "trip-2", "", "trip-2"},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(normalized.TripIDs) != 2 || normalized.TripIDs[0] != "trip-1" || normalized.TripIDs[1] != "trip-2" {
		t.Fatalf("unexpected trip set: %v", normalized.TripIDs)
	}
}

func TestNormalizeCreateInviteInputEmptyTripSet(t *testing.T) {
	_, err := NormalizeCreateInviteInput(CreateInviteInput{
		CreatedBy: "admin-1",
		Role:      access.RoleViewer,
		TripIDs:   []string{"  ", ""},
	})
	if !errors.Is(err, ErrEmptyTripSet) {
		t.Fatalf("expected ErrEmptyTripSet, got %v", err)
	}
}

func TestNormalizeCreateInviteInputRoleBounds(t *testing.T) {
	for _, role := range []access.Role{access.RoleUnspecified, access.Role(99)} {
		_, err := NormalizeCreateInviteInput(CreateInviteInput{
			CreatedBy: "admin-1",
			Role:      role,
			TripIDs:   []string{"trip-1"},
		})
		if !errors.Is(err, ErrInvalidRole) {
			t.Errorf("expected ErrInvalidRole for role %d, got %v", role, err)
		}
	}
}

func TestNormalizeCreateInviteInputDefaultsTTL(t *testing.T) {
	normalized, err := NormalizeCreateInviteInput(CreateInviteInput{
		CreatedBy: "admin-1",
		Role:      access.RoleEditor,
		TripIDs:   []string{"trip-1"},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.TTL != 72*time.Hour {
		t.Fatalf("unexpected default ttl: %v", normalized.TTL)
	}
}

func TestNormalizeCreateInviteInputRequiresCreator(t *testing.T) {
	_, err := NormalizeCreateInviteInput(CreateInviteInput{
		Role:    access.RoleViewer,
		TripIDs: []string{"trip-1"},
	})
	if err == nil {
		t.Fatal("expected error for missing creator")
	}
}
