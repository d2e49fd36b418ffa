package config

import (
	"testing"
)

const testAuthority = "0x8BA1f109551bD432803012645Ac136ddd64DBA72"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/claims")
	t.Setenv("AUTHORITY_ADDRESS", testAuthority)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("default env should be development")
	}
	if cfg.Authority().Hex() != testAuthority {
		t.Errorf("Authority = %s, want %s", cfg.Authority().Hex(), testAuthority)
	}
	if cfg.RequestTimeout != 30 {
		t.Errorf("RequestTimeout = %d, want 30", cfg.RequestTimeout)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AUTHORITY_ADDRESS", testAuthority)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoad_InvalidAuthority(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/claims")
	t.Setenv("AUTHORITY_ADDRESS", "not-an-address")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid AUTHORITY_ADDRESS")
	}
}

func TestLoad_ProductionRequiresSigningKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/claims")
	t.Setenv("AUTHORITY_ADDRESS", testAuthority)
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_SIGNING_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing AUTH_SIGNING_KEY in production")
	}
}
