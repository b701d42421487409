package ceremony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/tripfolio/tripfolio/internal/account"
	"github.com/tripfolio/tripfolio/internal/auth/passkey"
	"github.com/tripfolio/tripfolio/internal/storage"
)

// BeginRegistration starts a registration ceremony for an email that has no
// account yet. The challenge is single-use and bound to the pending email and
// a freshly generated user handle; the account itself is only created when the
// ceremony finishes successfully.
func (s *Service) BeginRegistration(ctx context.Context, email string, displayName string) (Begin, error) {
	if err := s.ready(); err != nil {
		return Begin{}, err
	}

	normalized, err := account.NormalizeCreateAccountInput(account.CreateAccountInput{
		Email:       email,
		DisplayName: displayName,
	})
	if err != nil {
		return Begin{}, err
	}

	_, err = s.accounts.GetAccountByEmail(ctx, normalized.Email)
	if err == nil {
		return Begin{}, storage.ErrDuplicateAccount
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return Begin{}, fmt.Errorf("look up account by email: %w", err)
	}

	handle, err := s.idGenerator()
	if err != nil {
		return Begin{}, fmt.Errorf("generate user handle: %w", err)
	}
	registrant := &ceremonyAccount{
		handle:      []byte(handle),
		name:        normalized.Email,
		displayName: normalized.DisplayName,
	}

	creation, session, err := s.webAuthn.BeginRegistration(registrant,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
	)
	if err != nil {
		return Begin{}, fmt.Errorf("begin registration ceremony: %w", err)
	}

	ceremonyID, err := s.idGenerator()
	if err != nil {
		return Begin{}, fmt.Errorf("generate ceremony id: %w", err)
	}
	if err := s.storeCeremony(ctx, storage.Ceremony{
		ID:                 ceremonyID,
		Kind:               string(passkey.CeremonyKindRegistration),
		PendingEmail:       normalized.Email,
		PendingHandle:      handle,
		PendingDisplayName: normalized.DisplayName,
	}, session); err != nil {
		return Begin{}, fmt.Errorf("store ceremony: %w", err)
	}

	optionsJSON, err := json.Marshal(creation)
	if err != nil {
		return Begin{}, fmt.Errorf("encode registration options: %w", err)
	}
	return Begin{CeremonyID: ceremonyID, OptionsJSON: optionsJSON}, nil
}

// FinishRegistration verifies a registration response against its consumed
// challenge and creates the account with its first credential. The account
// insert, the credential insert, and the first-admin bootstrap claim share one
// atomic unit of work in storage.
func (s *Service) FinishRegistration(ctx context.Context, ceremonyID string, response []byte) (account.Account, error) {
	if err := s.ready(); err != nil {
		return account.Account{}, err
	}
	ceremonyID = strings.TrimSpace(ceremonyID)
	if ceremonyID == "" {
		return account.Account{}, ErrChallengeNotFound
	}
	if len(response) == 0 {
		return account.Account{}, ErrSignatureInvalid
	}

	consumed, session, err := s.consumeCeremony(ctx, ceremonyID, passkey.CeremonyKindRegistration)
	if err != nil {
		return account.Account{}, err
	}

	parsed, err := s.parser.ParseCredentialCreationResponseBytes(response)
	if err != nil {
		return account.Account{}, ErrSignatureInvalid
	}

	registrant := &ceremonyAccount{
		handle:      []byte(consumed.PendingHandle),
		name:        consumed.PendingEmail,
		displayName: consumed.PendingDisplayName,
	}
	credential, err := s.webAuthn.CreateCredential(registrant, session, parsed)
	if err != nil {
		return account.Account{}, ErrSignatureInvalid
	}

	created, err := account.CreateAccount(account.CreateAccountInput{
		Email:       consumed.PendingEmail,
		DisplayName: consumed.PendingDisplayName,
		Handle:      consumed.PendingHandle,
	}, s.clock, s.idGenerator)
	if err != nil {
		return account.Account{}, err
	}

	record, err := credentialRecord(created.ID, *credential, s.clock().UTC())
	if err != nil {
		return account.Account{}, err
	}

	stored, err := s.accounts.CreateAccountWithCredential(ctx, created, record)
	if err != nil {
		return account.Account{}, err
	}
	return stored, nil
}
