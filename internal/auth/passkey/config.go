// Package passkey holds WebAuthn relying-party configuration.
package passkey

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// CeremonyKind describes the WebAuthn ceremony purpose.
type CeremonyKind string

const (
	CeremonyKindRegistration CeremonyKind = "registration"
	CeremonyKindLogin        CeremonyKind = "login"
)

// Config controls WebAuthn relying party settings.
//
// The relying-party identity is supplied by the deployment, never computed by
// the core.
type Config struct {
	RPDisplayName string        `env:"TRIPFOLIO_WEBAUTHN_RP_DISPLAY_NAME" envDefault:"Tripfolio"`
	RPID          string        `env:"TRIPFOLIO_WEBAUTHN_RP_ID"           envDefault:"localhost"`
	RPOrigins     []string      `env:"TRIPFOLIO_WEBAUTHN_RP_ORIGINS"      envSeparator:","`
	CeremonyTTL   time.Duration `env:"TRIPFOLIO_WEBAUTHN_CEREMONY_TTL"    envDefault:"5m"`
}

// LoadConfigFromEnv returns passkey configuration with defaults.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{
			RPDisplayName: "Tripfolio",
			RPID:          "localhost",
			RPOrigins:     []string{"http://localhost:8094"},
			CeremonyTTL:   5 * time.Minute,
		}
	}
	if len(cfg.RPOrigins) == 0 {
		cfg.RPOrigins = []string{"http://localhost:8094"}
	}
	if cfg.CeremonyTTL <= 0 {
		cfg.CeremonyTTL = 5 * time.Minute
	}
	return cfg
}
