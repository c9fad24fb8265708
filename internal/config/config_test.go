package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr = %q, want %q", cfg.Addr(), ":8080")
	}
	if cfg.AuthMode != AuthModeLocal {
		t.Errorf("AuthMode = %q, want %q", cfg.AuthMode, AuthModeLocal)
	}
	if cfg.SessionCookie != "soiree_session" {
		t.Errorf("SessionCookie = %q", cfg.SessionCookie)
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if len(cfg.ProtectedPrefixes) != 2 || cfg.ProtectedPrefixes[0] != "/invitations" || cfg.ProtectedPrefixes[1] != "/account" {
		t.Errorf("ProtectedPrefixes = %v", cfg.ProtectedPrefixes)
	}
	if cfg.IDPRetries != 2 || cfg.IDPTimeout != 5*time.Second {
		t.Errorf("IDP retry settings = %d, %v", cfg.IDPRetries, cfg.IDPTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"SOIREE_PORT":               "9000",
		"SOIREE_AUTH_MODE":          "idp",
		"SOIREE_IDP_URL":            "https://id.example.com",
		"SOIREE_SECURE_COOKIES":     "true",
		"SOIREE_PROTECTED_PREFIXES": "/invitations,/account,/party",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9000 || !cfg.SecureCookies {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.ProtectedPrefixes) != 3 {
		t.Errorf("ProtectedPrefixes = %v", cfg.ProtectedPrefixes)
	}
}

func TestLoadIDPRequiresURL(t *testing.T) {
	_, err := LoadFrom(map[string]string{"SOIREE_AUTH_MODE": "idp"})
	if err == nil || !strings.Contains(err.Error(), "SOIREE_IDP_URL") {
		t.Fatalf("err = %v, want missing IDP URL", err)
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	if _, err := LoadFrom(map[string]string{"SOIREE_AUTH_MODE": "magic"}); err == nil {
		t.Fatal("expected error for unknown auth mode")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	if _, err := LoadFrom(map[string]string{"SOIREE_SESSION_TTL": "forever"}); err == nil {
		t.Fatal("expected parse error")
	}
}
