package invite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tripfolio/tripfolio/internal/storage"
	"github.com/tripfolio/tripfolio/internal/trips/access"
)

// Ledger creates invites and redeems them exactly once into trip grants.
//
// The redemption race lives in the store: the unredeemed-to-redeemed
// transition and the grant writes share one atomic unit there, so the ledger
// itself holds no locks.
type Ledger struct {
	invites       storage.InviteStore
	clock         func() time.Time
	codeGenerator func() (string, error)
}

// NewLedger builds an invite ledger with defaults.
func NewLedger(invites storage.InviteStore) *Ledger {
	return &Ledger{
		invites:       invites,
		clock:         time.Now,
		codeGenerator: NewCode,
	}
}

// CreateInvite mints an invite code scoped to a role and a fixed trip set.
func (l *Ledger) CreateInvite(ctx context.Context, input CreateInviteInput) (storage.Invite, error) {
	if l == nil || l.invites == nil {
		return storage.Invite{}, errors.New("invite store is not configured")
	}

	normalized, err := NormalizeCreateInviteInput(input)
	if err != nil {
		return storage.Invite{}, err
	}

	code, err := l.codeGenerator()
	if err != nil {
		return storage.Invite{}, fmt.Errorf("generate invite code: %w", err)
	}

	now := l.clock().UTC()
	created := storage.Invite{
		Code:      code,
		CreatedBy: normalized.CreatedBy,
		Role:      access.RoleLabel(normalized.Role),
		Email:     normalized.Email,
		TripIDs:   normalized.TripIDs,
		ExpiresAt: now.Add(normalized.TTL),
		CreatedAt: now,
	}
	if err := l.invites.CreateInvite(ctx, created); err != nil {
		return storage.Invite{}, fmt.Errorf("store invite: %w", err)
	}
	return created, nil
}

// Redeem converts an invite code into trip grants for the redeeming account.
// Exactly one redemption can ever succeed per code; losers observe
// ErrInviteAlreadyUsed. Expired codes fail without transitioning state.
func (l *Ledger) Redeem(ctx context.Context, code string, accountID string) ([]storage.TripGrant, error) {
	if l == nil || l.invites == nil {
		return nil, errors.New("invite store is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, storage.ErrNotFound
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, errors.New("redeeming account id is required")
	}

	return l.invites.RedeemInvite(ctx, code, accountID, l.clock().UTC())
}
