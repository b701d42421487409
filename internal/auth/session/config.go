// Package session issues and verifies signed session tokens.
package session

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// sessionEnv holds raw env values before post-parse validation.
type sessionEnv struct {
	Issuer     string        `env:"TRIPFOLIO_SESSION_ISSUER"`
	Audience   string        `env:"TRIPFOLIO_SESSION_AUDIENCE"`
	PrivateKey string        `env:"TRIPFOLIO_SESSION_PRIVATE_KEY"`
	TTL        time.Duration `env:"TRIPFOLIO_SESSION_TTL"         envDefault:"12h"`
}

// Config defines how session tokens are signed and verified.
type Config struct {
	Issuer     string
	Audience   string
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
	TTL        time.Duration
}

// LoadConfigFromEnv reads session token configuration.
func LoadConfigFromEnv() (Config, error) {
	var raw sessionEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse session env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	privateKey := strings.TrimSpace(raw.PrivateKey)
	if issuer == "" {
		return Config{}, fmt.Errorf("TRIPFOLIO_SESSION_ISSUER is required")
	}
	if audience == "" {
		return Config{}, fmt.Errorf("TRIPFOLIO_SESSION_AUDIENCE is required")
	}
	if privateKey == "" {
		return Config{}, fmt.Errorf("TRIPFOLIO_SESSION_PRIVATE_KEY is required")
	}
	keyBytes, err := decodeBase64(privateKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode session private key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return Config{}, fmt.Errorf("session private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if raw.TTL <= 0 {
		return Config{}, fmt.Errorf("session ttl must be positive")
	}

	key := ed25519.PrivateKey(keyBytes)
	return Config{
		Issuer:     issuer,
		Audience:   audience,
		PrivateKey: key,
		PublicKey:  key.Public().(ed25519.PublicKey),
		TTL:        raw.TTL,
	}, nil
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
