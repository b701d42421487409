package session

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	apperrors "github.com/tripfolio/tripfolio/internal/platform/errors"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return Config{
		Issuer:     "tripfolio-test",
		Audience:   "tripfolio-api",
		PrivateKey: privateKey,
		PublicKey:  publicKey,
		TTL:        time.Hour,
	}
}

func testIssuer(t *testing.T, at time.Time) *Issuer {
	t.Helper()
	issuer := NewIssuer(testConfig(t))
	issuer.clock = func() time.Time { return at }
	return issuer
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(t, issuedAt)

	token, err := issuer.Issue("acct-1", true, 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.AccountID != "acct-1" {
		t.Fatalf("unexpected account id: %q", claims.AccountID)
	}
	if !claims.IsAdmin {
		t.Fatal("expected admin claim preserved")
	}
	if !claims.ExpiresAt.Equal(issuedAt.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", claims.ExpiresAt)
	}
}

func TestVerifyBeforeAndAfterExpiry(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(t, issuedAt)

	token, err := issuer.Issue("acct-1", false, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	issuer.clock = func() time.Time { return issuedAt.Add(59 * time.Minute) }
	if _, err := issuer.Verify(token); err != nil {
		t.Fatalf("verify before expiry: %v", err)
	}

	issuer.clock = func() time.Time { return issuedAt.Add(61 * time.Minute) }
	_, err = issuer.Verify(token)
	if apperrors.GetCode(err) != apperrors.CodeTokenExpired {
		t.Fatalf("expected CodeTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(t, issuedAt)

	token, err := issuer.Issue("acct-1", false, 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	_, err = issuer.Verify(tampered)
	if apperrors.GetCode(err) != apperrors.CodeTokenInvalid {
		t.Fatalf("expected CodeTokenInvalid, got %v", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(t, issuedAt)
	other := testIssuer(t, issuedAt)

	token, err := issuer.Issue("acct-1", false, 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	_, err = other.Verify(token)
	if apperrors.GetCode(err) != apperrors.CodeTokenInvalid {
		t.Fatalf("expected CodeTokenInvalid, got %v", err)
	}
}

func TestVerifyRejectsIssuerAndAudienceMismatch(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(t, issuedAt)

	token, err := issuer.Issue("acct-1", false, 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	wrongIssuer := NewIssuer(issuer.config)
	wrongIssuer.clock = issuer.clock
	wrongIssuer.config.Issuer = "someone-else"
	if _, err := wrongIssuer.Verify(token); apperrors.GetCode(err) != apperrors.CodeTokenInvalid {
		t.Fatalf("expected issuer mismatch rejection, got %v", err)
	}

	wrongAudience := NewIssuer(issuer.config)
	wrongAudience.clock = issuer.clock
	wrongAudience.config.Audience = "other-api"
	if _, err := wrongAudience.Verify(token); apperrors.GetCode(err) != apperrors.CodeTokenInvalid {
		t.Fatalf("expected audience mismatch rejection, got %v", err)
	}
}

func TestVerifyRequiresToken(t *testing.T) {
	issuer := testIssuer(t, time.Now())
	_, err := issuer.Verify("  ")
	if apperrors.GetCode(err) != apperrors.CodeTokenInvalid {
		t.Fatalf("expected CodeTokenInvalid, got %v", err)
	}
}

func TestIssueRequiresAccountID(t *testing.T) {
	issuer := testIssuer(t, time.Now())
	if _, err := issuer.Issue("  ", false, 0); err == nil {
		t.Fatal("expected error for empty account id")
	}
}

func TestIssueRequiresConfiguredKey(t *testing.T) {
	issuer := NewIssuer(Config{TTL: time.Hour})
	if _, err := issuer.Issue("acct-1", false, 0); err == nil {
		t.Fatal("expected error for missing private key")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	t.Setenv("TRIPFOLIO_SESSION_ISSUER", "tripfolio")
	t.Setenv("TRIPFOLIO_SESSION_AUDIENCE", "tripfolio-api")
	t.Setenv("TRIPFOLIO_SESSION_PRIVATE_KEY", encodeKey(privateKey))
	t.Setenv("TRIPFOLIO_SESSION_TTL", "30m")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Issuer != "tripfolio" || cfg.Audience != "tripfolio-api" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.TTL != 30*time.Minute {
		t.Fatalf("unexpected ttl: %v", cfg.TTL)
	}
	if !cfg.PublicKey.Equal(publicKey) {
		t.Fatal("expected public key derived from private key")
	}
}

func TestLoadConfigFromEnvMissingKey(t *testing.T) {
	t.Setenv("TRIPFOLIO_SESSION_ISSUER", "tripfolio")
	t.Setenv("TRIPFOLIO_SESSION_AUDIENCE", "tripfolio-api")
	t.Setenv("TRIPFOLIO_SESSION_PRIVATE_KEY", "")

	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("expected error for missing private key")
	}
}

func TestLoadConfigFromEnvBadKeyLength(t *testing.T) {
	t.Setenv("TRIPFOLIO_SESSION_ISSUER", "tripfolio")
	t.Setenv("TRIPFOLIO_SESSION_AUDIENCE", "tripfolio-api")
	t.Setenv("TRIPFOLIO_SESSION_PRIVATE_KEY", "c2hvcnQ")

	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("expected error for short key")
	}
}

func encodeKey(key ed25519.PrivateKey) string {
	return base64.RawStdEncoding.EncodeToString(key)
}
