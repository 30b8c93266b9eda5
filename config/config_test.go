package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ListenAddr != ":4500" {
		t.Fatalf("expected default listen addr, got %s", cfg.ListenAddr)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access TTL, got %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh TTL, got %s", cfg.RefreshTokenTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("REFRESH_TOKEN_TTL_MINUTES", "60")

	cfg := Load()
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("expected LISTEN_ADDR override, got %s", cfg.ListenAddr)
	}
	if cfg.JWTAccessSecret != "access-secret" {
		t.Fatalf("expected JWT_SECRET override")
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("expected ACCESS_TOKEN_TTL 30m, got %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != time.Hour {
		t.Fatalf("expected REFRESH_TOKEN_TTL_MINUTES 60, got %s", cfg.RefreshTokenTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsSharedSecret(t *testing.T) {
	cfg := Config{
		JWTAccessSecret:  "same",
		JWTRefreshSecret: "same",
		AccessTokenTTL:   time.Minute,
		RefreshTokenTTL:  time.Hour,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for shared secret")
	}
}
