package config

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func validKey() string {
	return base64.StdEncoding.EncodeToString(make([]byte, 32))
}

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"SYSTEM_KEY": validKey(),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.Token.TTL() != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", cfg.Token.TTL())
	}
	if cfg.Token.Store != "mongo" {
		t.Fatalf("expected mongo token store, got %q", cfg.Token.Store)
	}
	if cfg.Keys.Signature != "ES256" || cfg.Keys.Encryption != "RSA" || cfg.Keys.Symmetric != "AES" {
		t.Fatalf("unexpected algorithm defaults: %+v", cfg.Keys)
	}
	if cfg.Login.MaxFailedAttempts != 5 {
		t.Fatalf("expected 5 max failed logins, got %d", cfg.Login.MaxFailedAttempts)
	}
	if cfg.Login.LockoutDuration != 15*time.Minute {
		t.Fatalf("expected 15m lockout, got %v", cfg.Login.LockoutDuration)
	}
	if cfg.AMQP.URL != "" {
		t.Fatalf("AMQP must be disabled by default")
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"SYSTEM_KEY":          validKey(),
		"TOKEN_TTL_SECONDS":   "900",
		"TOKEN_STORE":         "redis",
		"TOKEN_CLOCK_SKEW":    "5s",
		"SIGNATURE_ALGORITHM": "EdDSA",
		"AUDIT_WORKERS":       "8",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Token.TTL() != 15*time.Minute {
		t.Fatalf("expected 15m ttl, got %v", cfg.Token.TTL())
	}
	if cfg.Token.Store != "redis" || cfg.Token.ClockSkew != 5*time.Second {
		t.Fatalf("unexpected token config: %+v", cfg.Token)
	}
	if cfg.Keys.Signature != "EdDSA" || cfg.Audit.Workers != 8 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadWith_MissingSystemKey(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err == nil {
		t.Fatalf("expected error for missing SYSTEM_KEY")
	}
}

func TestLoadWith_RejectsUnknownTokenStore(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"SYSTEM_KEY":  validKey(),
		"TOKEN_STORE": "memcached",
	}))
	if err == nil || !strings.Contains(err.Error(), "TOKEN_STORE") {
		t.Fatalf("expected TOKEN_STORE error, got %v", err)
	}
}

func TestSystemKeyBytes(t *testing.T) {
	k := KeysConfig{SystemKey: validKey()}
	raw, err := k.SystemKeyBytes()
	if err != nil || len(raw) != 32 {
		t.Fatalf("expected 32 bytes, got %d (%v)", len(raw), err)
	}

	short := KeysConfig{SystemKey: base64.StdEncoding.EncodeToString([]byte("short"))}
	if _, err := short.SystemKeyBytes(); err == nil {
		t.Fatalf("expected length error")
	}

	bad := KeysConfig{SystemKey: "%%%"}
	if _, err := bad.SystemKeyBytes(); err == nil {
		t.Fatalf("expected decode error")
	}
}
