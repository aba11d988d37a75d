package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.AppPort != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.AppPort)
	}
	if cfg.Currency != "RWF" {
		t.Errorf("expected default currency RWF, got %s", cfg.Currency)
	}
	if cfg.PaymentProviderTimeout != 30*time.Second {
		t.Errorf("expected 30s provider timeout, got %v", cfg.PaymentProviderTimeout)
	}
	if cfg.NotificationMaxAttempts != 5 {
		t.Errorf("expected 5 max attempts, got %d", cfg.NotificationMaxAttempts)
	}
	if cfg.IsProduction() {
		t.Error("default env should not be production")
	}
}

func TestLoadConfigRejectsJWTWithoutSecret(t *testing.T) {
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestLoadConfigRejectsUnknownStore(t *testing.T) {
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("STORE_DRIVER", "postgres")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported store driver")
	}
}
