package ceremony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tripfolio/tripfolio/internal/account"
	"github.com/tripfolio/tripfolio/internal/auth/passkey"
	"github.com/tripfolio/tripfolio/internal/storage"
)

// BeginLogin starts an authentication ceremony for a registered email.
//
// Callers at the external boundary must collapse ErrAccountNotFound with
// assertion failures; this method reports the distinction for internal use
// only.
func (s *Service) BeginLogin(ctx context.Context, email string) (Begin, error) {
	if err := s.ready(); err != nil {
		return Begin{}, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Begin{}, account.ErrEmptyEmail
	}

	found, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Begin{}, ErrAccountNotFound
		}
		return Begin{}, fmt.Errorf("look up account by email: %w", err)
	}

	holder, err := s.loadCeremonyAccount(ctx, found)
	if err != nil {
		return Begin{}, fmt.Errorf("load account credentials: %w", err)
	}

	assertion, session, err := s.webAuthn.BeginLogin(holder)
	if err != nil {
		return Begin{}, fmt.Errorf("begin login ceremony: %w", err)
	}

	ceremonyID, err := s.idGenerator()
	if err != nil {
		return Begin{}, fmt.Errorf("generate ceremony id: %w", err)
	}
	if err := s.storeCeremony(ctx, storage.Ceremony{
		ID:        ceremonyID,
		Kind:      string(passkey.CeremonyKindLogin),
		AccountID: found.ID,
	}, session); err != nil {
		return Begin{}, fmt.Errorf("store ceremony: %w", err)
	}

	optionsJSON, err := json.Marshal(assertion)
	if err != nil {
		return Begin{}, fmt.Errorf("encode login options: %w", err)
	}
	return Begin{CeremonyID: ceremonyID, OptionsJSON: optionsJSON}, nil
}

// FinishLogin verifies an assertion against its consumed challenge and the
// account's stored credentials.
//
// Counter discipline: the assertion's signature counter must strictly exceed
// the stored counter once either is nonzero. Authenticators that always
// report zero are accepted as a documented exception with no replay
// detection. Rejected assertions mutate no state; accepted ones advance the
// stored counter and last-used timestamp through a conditional update so
// concurrent assertions on the same credential serialize.
func (s *Service) FinishLogin(ctx context.Context, ceremonyID string, response []byte) (account.Account, error) {
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

	consumed, session, err := s.consumeCeremony(ctx, ceremonyID, passkey.CeremonyKindLogin)
	if err != nil {
		return account.Account{}, err
	}

	found, err := s.accounts.GetAccount(ctx, consumed.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return account.Account{}, ErrAccountNotFound
		}
		return account.Account{}, fmt.Errorf("look up account: %w", err)
	}

	holder, err := s.loadCeremonyAccount(ctx, found)
	if err != nil {
		return account.Account{}, fmt.Errorf("load account credentials: %w", err)
	}

	parsed, err := s.parser.ParseCredentialRequestResponseBytes(response)
	if err != nil {
		return account.Account{}, ErrSignatureInvalid
	}

	credentialID := encodeCredentialID(parsed.RawID)
	if _, err := s.credentials.GetCredential(ctx, credentialID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return account.Account{}, ErrCredentialNotFound
		}
		return account.Account{}, fmt.Errorf("look up credential: %w", err)
	}

	validated, err := s.webAuthn.ValidateLogin(holder, session, parsed)
	if err != nil {
		return account.Account{}, ErrSignatureInvalid
	}

	// The library flags a non-increasing counter instead of failing the
	// ceremony. A flagged assertion is a cloned-authenticator signal and is
	// rejected before any state changes.
	if validated.Authenticator.CloneWarning {
		return account.Account{}, ErrCounterReplay
	}

	updatedJSON, err := json.Marshal(validated)
	if err != nil {
		return account.Account{}, fmt.Errorf("encode credential: %w", err)
	}
	if err := s.credentials.UpdateCredentialCounter(ctx, credentialID, validated.Authenticator.SignCount, string(updatedJSON), s.clock().UTC()); err != nil {
		if errors.Is(err, storage.ErrCounterConflict) {
			return account.Account{}, ErrCounterReplay
		}
		return account.Account{}, fmt.Errorf("update credential counter: %w", err)
	}

	return found, nil
}
