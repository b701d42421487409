package invite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tripfolio/tripfolio/internal/storage"
	"github.com/tripfolio/tripfolio/internal/trips/access"
)

type fakeInviteStore struct {
	created     []storage.Invite
	redeemCode  string
	redeemBy    string
	redeemAt    time.Time
	redeemRes   []storage.TripGrant
	redeemErr   error
	createErr   error
	getInvites  map[string]storage.Invite
	getMissing  bool
	createCalls int
}

func (f *fakeInviteStore) CreateInvite(ctx context.Context, invite storage.Invite) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, invite)
	return nil
}

func (f *fakeInviteStore) GetInvite(ctx context.Context, code string) (storage.Invite, error) {
	if f.getMissing {
		return storage.Invite{}, storage.ErrNotFound
	}
	return f.getInvites[code], nil
}

func (f *fakeInviteStore) RedeemInvite(ctx context.Context, code string, accountID string, now time.Time) ([]storage.TripGrant, error) {
	f.redeemCode = code
	f.redeemBy = accountID
	f.redeemAt = now
	return f.redeemRes, f.redeemErr
}

func testLedger(store *fakeInviteStore, at time.Time) *Ledger {
	ledger := NewLedger(store)
	ledger.clock = func() time.Time { return at }
	ledger.codeGenerator = func() (string, error) { return "fixed-code", nil }
	return ledger
}

func TestCreateInviteStampsCodeAndExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeInviteStore{}
	ledger := testLedger(store, now)

	created, err := ledger.CreateInvite(context.Background(), CreateInviteInput{
		CreatedBy: "admin-1",
		Role:      access.RoleEditor,
		TripIDs:   []string{"trip-1"},
		TTL:       time.Hour,
	})
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if created.Code != "fixed-code" {
		t.Fatalf("unexpected code: %q", created.Code)
	}
	if created.Role != "EDITOR" {
		t.Fatalf("unexpected role label: %q", created.Role)
	}
	if !created.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", created.ExpiresAt)
	}
	if store.createCalls != 1 {
		t.Fatalf("expected one store call, got %d", store.createCalls)
	}
}

func TestCreateInviteRejectsInvalidInput(t *testing.T) {
	store := &fakeInviteStore{}
	ledger := testLedger(store, time.Now())

	_, err := ledger.CreateInvite(context.Background(), CreateInviteInput{
		CreatedBy: "admin-1",
		Role:      access.RoleViewer,
	})
	if !errors.Is(err, ErrEmptyTripSet) {
		t.Fatalf("expected ErrEmptyTripSet, got %v", err)
	}
	if store.createCalls != 0 {
		t.Fatal("invalid input must not reach the store")
	}
}

func TestRedeemDelegatesToStore(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeInviteStore{redeemRes: []storage.TripGrant{{TripID: "trip-1", Role: "VIEWER"}}}
	ledger := testLedger(store, now)

	grants, err := ledger.Redeem(context.Background(), " code-1 ", "acct-1")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if len(grants) != 1 || grants[0].TripID != "trip-1" {
		t.Fatalf("unexpected grants: %+v", grants)
	}
	if store.redeemCode != "code-1" || store.redeemBy != "acct-1" {
		t.Fatalf("unexpected delegation: code=%q by=%q", store.redeemCode, store.redeemBy)
	}
	if !store.redeemAt.Equal(now) {
		t.Fatalf("unexpected redemption time: %v", store.redeemAt)
	}
}

func TestRedeemEmptyCode(t *testing.T) {
	ledger := testLedger(&fakeInviteStore{}, time.Now())
	_, err := ledger.Redeem(context.Background(), "  ", "acct-1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedeemRequiresAccount(t *testing.T) {
	ledger := testLedger(&fakeInviteStore{}, time.Now())
	if _, err := ledger.Redeem(context.Background(), "code-1", " "); err == nil {
		t.Fatal("expected error for empty account id")
	}
}

func TestRedeemPropagatesStoreError(t *testing.T) {
	store := &fakeInviteStore{redeemErr: storage.ErrInviteAlreadyUsed}
	ledger := testLedger(store, time.Now())
	_, err := ledger.Redeem(context.Background(), "code-1", "acct-1")
	if !errors.Is(err, storage.ErrInviteAlreadyUsed) {
		t.Fatalf("expected ErrInviteAlreadyUsed, got %v", err)
	}
}
