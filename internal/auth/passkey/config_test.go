package passkey

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("TRIPFOLIO_WEBAUTHN_RP_DISPLAY_NAME", "")
	t.Setenv("TRIPFOLIO_WEBAUTHN_RP_ID", "")
	t.Setenv("TRIPFOLIO_WEBAUTHN_RP_ORIGINS", "")
	t.Setenv("TRIPFOLIO_WEBAUTHN_CEREMONY_TTL", "")

	cfg := LoadConfigFromEnv()
	if cfg.RPID != "localhost" {
		t.Fatalf("unexpected rp id: %q", cfg.RPID)
	}
	if len(cfg.RPOrigins) == 0 {
		t.Fatal("expected default origins")
	}
	if cfg.CeremonyTTL != 5*time.Minute {
		t.Fatalf("unexpected ttl: %v", cfg.CeremonyTTL)
	}
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("TRIPFOLIO_WEBAUTHN_RP_DISPLAY_NAME", "Trips")
	t.Setenv("TRIPFOLIO_WEBAUTHN_RP_ID", "trips.example.com")
	t.Setenv("TRIPFOLIO_WEBAUTHN_RP_ORIGINS", "https://trips.example.com,https://www.trips.example.com")
	t.Setenv("TRIPFOLIO_WEBAUTHN_CEREMONY_TTL", "2m")

	cfg := LoadConfigFromEnv()
	if cfg.RPDisplayName != "Trips" || cfg.RPID != "trips.example.com" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.RPOrigins) != 2 {
		t.Fatalf("unexpected origins: %v", cfg.RPOrigins)
	}
	if cfg.CeremonyTTL != 2*time.Minute {
		t.Fatalf("unexpected ttl: %v", cfg.CeremonyTTL)
	}
}
