package session

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/tripfolio/tripfolio/internal/platform/errors"
	"github.com/tripfolio/tripfolio/internal/platform/id"
)

// Claims captures the validated identity and privilege claims of a session
// token. Claims are derived, never persisted: the token itself is the only
// session state.
type Claims struct {
	AccountID string
	IsAdmin   bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the internal claims type used for JWT signing and parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	Admin bool `json:"adm"`
}

// Issuer mints and verifies signed session tokens. There is no refresh
// mechanism; an expired token requires a new ceremony.
type Issuer struct {
	config      Config
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewIssuer builds a session token issuer with defaults.
func NewIssuer(config Config) *Issuer {
	return &Issuer{
		config:      config,
		clock:       time.Now,
		idGenerator: id.NewID,
	}
}

// Issue produces a signed token embedding the account identity and admin
// privilege. A non-positive ttl falls back to the configured default.
//
// The admin claim is frozen at issuance; later promotion does not affect
// tokens already in flight.
func (i *Issuer) Issue(accountID string, isAdmin bool, ttl time.Duration) (string, error) {
	if i == nil || len(i.config.PrivateKey) != ed25519.PrivateKeySize {
		return "", errors.New("session signer is not configured")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", errors.New("account id is required")
	}
	if ttl <= 0 {
		ttl = i.config.TTL
	}

	jti, err := i.idGenerator()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}

	now := i.clock().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.config.Issuer,
			Audience:  jwt.ClaimStrings{i.config.Audience},
			Subject:   accountID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Admin: isAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(i.config.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks a token's signature and expiry and returns its claims.
// Verification is stateless: no store lookup, no side effects.
func (i *Issuer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "session token is required")
	}
	if i == nil || len(i.config.PublicKey) != ed25519.PublicKeySize {
		return Claims{}, errors.New("session verifier is not configured")
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return i.config.PublicKey, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != i.config.Issuer {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "session token issuer mismatch")
	}
	if !audienceContains(parsed.Audience, i.config.Audience) {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "session token audience mismatch")
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "session token subject is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "session token exp is required")
	}

	now := i.clock().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeTokenExpired, "session token is expired")
	}

	claims := Claims{
		AccountID: parsed.Subject,
		IsAdmin:   parsed.Admin,
		ExpiresAt: exp,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeTokenInvalid, "session token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeTokenInvalid, "session token alg is invalid")
	}
	return apperrors.New(apperrors.CodeTokenInvalid, "session token is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
