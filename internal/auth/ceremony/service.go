// Package ceremony runs WebAuthn registration and login ceremonies.
package ceremony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/tripfolio/tripfolio/internal/account"
	"github.com/tripfolio/tripfolio/internal/auth/passkey"
	apperrors "github.com/tripfolio/tripfolio/internal/platform/errors"
	"github.com/tripfolio/tripfolio/internal/platform/id"
	"github.com/tripfolio/tripfolio/internal/storage"
)

var (
	// ErrChallengeNotFound indicates a ceremony challenge that does not exist
	// or was already consumed. Consumption is single-use: the first
	// verification attempt removes the challenge regardless of its outcome.
	ErrChallengeNotFound = apperrors.New(apperrors.CodeChallengeNotFound, "ceremony challenge not found")
	// ErrChallengeExpired indicates a ceremony challenge past its TTL.
	ErrChallengeExpired = apperrors.New(apperrors.CodeChallengeExpired, "ceremony challenge is expired")
	// ErrSignatureInvalid indicates a ceremony response that failed
	// cryptographic verification.
	ErrSignatureInvalid = apperrors.New(apperrors.CodeSignatureInvalid, "ceremony response verification failed")
	// ErrCredentialNotFound indicates an assertion naming an unknown credential.
	ErrCredentialNotFound = apperrors.New(apperrors.CodeCredentialNotFound, "credential not found")
	// ErrCounterReplay indicates an assertion whose signature counter did not
	// strictly increase, the signature of a cloned or replayed authenticator.
	ErrCounterReplay = apperrors.New(apperrors.CodeCounterReplay, "authenticator counter replay detected")
	// ErrAccountNotFound indicates a login attempt for an unknown email.
	ErrAccountNotFound = apperrors.New(apperrors.CodeAccountNotFound, "account not found")
)

// Begin is the public result of a ceremony's begin step: the one-time
// challenge handle and the options the client feeds its authenticator.
type Begin struct {
	CeremonyID  string
	OptionsJSON []byte
}

type provider interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	CreateCredential(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error)
	BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidateLogin(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
}

type parser interface {
	ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error)
	ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error)
}

type defaultParser struct{}

func (defaultParser) ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error) {
	return protocol.ParseCredentialCreationResponseBytes(data)
}

func (defaultParser) ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error) {
	return protocol.ParseCredentialRequestResponseBytes(data)
}

// Service runs passwordless ceremonies against stored accounts, credentials,
// and pending challenges.
type Service struct {
	accounts    storage.AccountStore
	credentials storage.CredentialStore
	ceremonies  storage.CeremonyStore
	config      passkey.Config
	webAuthn    provider
	initErr     error
	parser      parser
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewService builds a ceremony service with defaults for the auth package.
func NewService(accounts storage.AccountStore, credentials storage.CredentialStore, ceremonies storage.CeremonyStore, config passkey.Config) *Service {
	webAuthn, err := webauthn.New(&webauthn.Config{
		RPDisplayName: config.RPDisplayName,
		RPID:          config.RPID,
		RPOrigins:     config.RPOrigins,
	})
	return &Service{
		accounts:    accounts,
		credentials: credentials,
		ceremonies:  ceremonies,
		config:      config,
		webAuthn:    webAuthn,
		initErr:     err,
		parser:      defaultParser{},
		clock:       time.Now,
		idGenerator: id.NewID,
	}
}

func (s *Service) ready() error {
	if s == nil {
		return errors.New("ceremony service is not configured")
	}
	if s.accounts == nil || s.credentials == nil || s.ceremonies == nil {
		return errors.New("ceremony stores are not configured")
	}
	if s.initErr != nil || s.webAuthn == nil {
		return errors.New("webauthn configuration is not available")
	}
	if s.parser == nil {
		return errors.New("ceremony parser is not configured")
	}
	return nil
}

// Credentials lists an account's registered authenticators.
func (s *Service) Credentials(ctx context.Context, accountID string) ([]storage.Credential, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.credentials.ListCredentialsByAccount(ctx, accountID)
}

// SweepExpired evicts expired ceremony challenges. The sweep is non-critical:
// an unswept expired challenge still fails consumption.
func (s *Service) SweepExpired(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.ceremonies.DeleteExpiredCeremonies(ctx, s.clock().UTC())
}

// ceremonyAccount adapts an account's identity and credentials to the
// webauthn.User interface. The user handle, not the email, is what the
// authenticator sees.
type ceremonyAccount struct {
	handle      []byte
	name        string
	displayName string
	credentials []webauthn.Credential
}

func (a *ceremonyAccount) WebAuthnID() []byte {
	return a.handle
}

func (a *ceremonyAccount) WebAuthnName() string {
	return a.name
}

func (a *ceremonyAccount) WebAuthnDisplayName() string {
	return a.displayName
}

func (a *ceremonyAccount) WebAuthnCredentials() []webauthn.Credential {
	return a.credentials
}

func (s *Service) loadCeremonyAccount(ctx context.Context, base account.Account) (*ceremonyAccount, error) {
	records, err := s.credentials.ListCredentialsByAccount(ctx, base.ID)
	if err != nil {
		return nil, err
	}
	parsed, err := decodeStoredCredentials(records)
	if err != nil {
		return nil, err
	}
	return &ceremonyAccount{
		handle:      []byte(base.Handle),
		name:        base.Email,
		displayName: base.DisplayName,
		credentials: parsed,
	}, nil
}

func decodeStoredCredentials(records []storage.Credential) ([]webauthn.Credential, error) {
	if len(records) == 0 {
		return nil, nil
	}
	credentials := make([]webauthn.Credential, 0, len(records))
	for _, record := range records {
		var credential webauthn.Credential
		if err := json.Unmarshal([]byte(record.CredentialJSON), &credential); err != nil {
			return nil, fmt.Errorf("decode credential %s: %w", record.CredentialID, err)
		}
		credentials = append(credentials, credential)
	}
	return credentials, nil
}

func (s *Service) storeCeremony(ctx context.Context, ceremony storage.Ceremony, session *webauthn.SessionData) error {
	if session == nil {
		return fmt.Errorf("session data is required")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ceremony.SessionJSON = string(payload)
	ceremony.ExpiresAt = s.clock().UTC().Add(s.config.CeremonyTTL)
	return s.ceremonies.PutCeremony(ctx, ceremony)
}

// consumeCeremony atomically removes the challenge and validates kind and
// expiry. A kind mismatch reports not-found so a registration challenge can
// never be replayed against login verification or vice versa.
func (s *Service) consumeCeremony(ctx context.Context, ceremonyID string, kind passkey.CeremonyKind) (storage.Ceremony, webauthn.SessionData, error) {
	stored, err := s.ceremonies.ConsumeCeremony(ctx, ceremonyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Ceremony{}, webauthn.SessionData{}, ErrChallengeNotFound
		}
		return storage.Ceremony{}, webauthn.SessionData{}, fmt.Errorf("consume ceremony: %w", err)
	}
	if stored.Kind != string(kind) {
		return storage.Ceremony{}, webauthn.SessionData{}, ErrChallengeNotFound
	}
	if !stored.ExpiresAt.After(s.clock().UTC()) {
		return storage.Ceremony{}, webauthn.SessionData{}, ErrChallengeExpired
	}

	var session webauthn.SessionData
	if err := json.Unmarshal([]byte(stored.SessionJSON), &session); err != nil {
		return storage.Ceremony{}, webauthn.SessionData{}, fmt.Errorf("decode ceremony session: %w", err)
	}
	return stored, session, nil
}

func encodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

func joinTransports(transports []protocol.AuthenticatorTransport) string {
	if len(transports) == 0 {
		return ""
	}
	values := make([]string, 0, len(transports))
	for _, transport := range transports {
		values = append(values, string(transport))
	}
	return strings.Join(values, ",")
}

func credentialRecord(accountID string, credential webauthn.Credential, now time.Time) (storage.Credential, error) {
	credentialJSON, err := json.Marshal(credential)
	if err != nil {
		return storage.Credential{}, fmt.Errorf("encode credential: %w", err)
	}
	return storage.Credential{
		CredentialID:   encodeCredentialID(credential.ID),
		AccountID:      accountID,
		CredentialJSON: string(credentialJSON),
		SignCount:      credential.Authenticator.SignCount,
		Transports:     joinTransports(credential.Transport),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
