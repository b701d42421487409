// Package storage defines the persistence contracts for the auth and
// trip-access core.
package storage

import (
	"context"
	"time"

	"github.com/tripfolio/tripfolio/internal/account"
	"github.com/tripfolio/tripfolio/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// ErrDuplicateAccount indicates an email is already registered.
var ErrDuplicateAccount = errors.New(errors.CodeDuplicateAccount, "email is already registered")

// ErrDuplicateCredential indicates a credential id is already bound,
// regardless of which account owns it.
var ErrDuplicateCredential = errors.New(errors.CodeDuplicateCredential, "credential id is already registered")

// ErrCounterConflict indicates a credential counter update lost to an equal or
// higher stored counter. Presented counters must strictly increase once the
// stored counter is nonzero.
var ErrCounterConflict = errors.New(errors.CodeCounterReplay, "credential counter did not increase")

// ErrInviteExpired indicates an invite's expiry has passed.
var ErrInviteExpired = errors.New(errors.CodeInviteExpired, "invite is expired")

// ErrInviteAlreadyUsed indicates an invite has already been redeemed.
var ErrInviteAlreadyUsed = errors.New(errors.CodeInviteAlreadyUsed, "invite is already redeemed")

// Credential stores one WebAuthn authenticator bound to an account.
//
// CredentialJSON carries the full webauthn credential record; SignCount is
// duplicated into its own column so counter updates can be guarded in SQL.
type Credential struct {
	CredentialID   string
	AccountID      string
	CredentialJSON string
	SignCount      uint32
	Transports     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastUsedAt     *time.Time
}

// Ceremony stores one pending WebAuthn registration or login challenge.
// A ceremony is single-use: it is removed on first consumption attempt.
type Ceremony struct {
	ID                 string
	Kind               string
	AccountID          string
	PendingEmail       string
	PendingHandle      string
	PendingDisplayName string
	SessionJSON        string
	ExpiresAt          time.Time
}

// Trip is the minimal trip record the access core needs: identity, slug
// resolution, and provenance. Trip content lives elsewhere.
type Trip struct {
	ID        string
	Slug      string
	Title     string
	CreatedBy string
	CreatedAt time.Time
}

// TripGrant maps one account to one trip at a role.
type TripGrant struct {
	AccountID string
	TripID    string
	Role      string
	GrantedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Invite is a redeemable capability scoped to a role and a fixed trip set.
type Invite struct {
	Code       string
	CreatedBy  string
	Role       string
	Email      string
	TripIDs    []string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	RedeemedBy string
	RedeemedAt *time.Time
}

// AccountStore persists account records.
type AccountStore interface {
	// CreateAccountWithCredential inserts the account and its first credential
	// in one atomic unit of work, claiming the first-admin marker inside the
	// same transaction. The returned account reflects the admin decision.
	CreateAccountWithCredential(ctx context.Context, a account.Account, credential Credential) (account.Account, error)
	GetAccount(ctx context.Context, accountID string) (account.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (account.Account, error)
}

// CredentialStore persists WebAuthn credentials.
type CredentialStore interface {
	CreateCredential(ctx context.Context, credential Credential) error
	GetCredential(ctx context.Context, credentialID string) (Credential, error)
	ListCredentialsByAccount(ctx context.Context, accountID string) ([]Credential, error)
	// UpdateCredentialCounter applies a post-assertion counter update guarded
	// by a strict-increase condition (with the both-zero exception for
	// counterless authenticators). A lost update fails ErrCounterConflict and
	// leaves stored state untouched.
	UpdateCredentialCounter(ctx context.Context, credentialID string, signCount uint32, credentialJSON string, usedAt time.Time) error
}

// CeremonyStore persists pending WebAuthn ceremonies.
type CeremonyStore interface {
	PutCeremony(ctx context.Context, ceremony Ceremony) error
	// ConsumeCeremony atomically removes and returns the ceremony. Under
	// concurrent consumption attempts exactly one caller receives the record;
	// the rest fail ErrNotFound.
	ConsumeCeremony(ctx context.Context, id string) (Ceremony, error)
	DeleteExpiredCeremonies(ctx context.Context, now time.Time) error
}

// TripStore persists trip records.
type TripStore interface {
	PutTrip(ctx context.Context, trip Trip) error
	GetTrip(ctx context.Context, tripID string) (Trip, error)
	GetTripBySlug(ctx context.Context, slug string) (Trip, error)
}

// GrantStore persists trip grants.
type GrantStore interface {
	// UpsertTripGrant inserts or upgrades a grant. An existing grant at an
	// equal or higher role is left unchanged.
	UpsertTripGrant(ctx context.Context, grant TripGrant) error
	GetTripGrant(ctx context.Context, accountID string, tripID string) (TripGrant, error)
	ListTripGrantsByAccount(ctx context.Context, accountID string) ([]TripGrant, error)
}

// InviteStore persists invites and performs redemption.
type InviteStore interface {
	CreateInvite(ctx context.Context, invite Invite) error
	GetInvite(ctx context.Context, code string) (Invite, error)
	// RedeemInvite performs the whole redemption in one atomic unit: the
	// unredeemed-to-redeemed transition (conditional on the unredeemed state)
	// and one grant upsert per associated trip. Under concurrent redemption
	// exactly one caller wins; the rest fail ErrInviteAlreadyUsed. Any grant
	// write failure rolls the transition back.
	RedeemInvite(ctx context.Context, code string, accountID string, now time.Time) ([]TripGrant, error)
}
