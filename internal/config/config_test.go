package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.CookieName != "portal_session" {
		t.Fatalf("expected default cookie name, got %q", cfg.CookieName)
	}
	if cfg.SessionMaxAge != 30*24*time.Hour {
		t.Fatalf("expected 30 day session max age, got %v", cfg.SessionMaxAge)
	}
	if cfg.AppTokenTTL != time.Hour {
		t.Fatalf("expected 1h app token ttl, got %v", cfg.AppTokenTTL)
	}
	if !cfg.RateLimitEnabled {
		t.Fatal("expected rate limiting enabled by default")
	}
	if cfg.RateLimitMax != 100 {
		t.Fatalf("expected 100 requests per window, got %d", cfg.RateLimitMax)
	}
	if cfg.CSRFStrict {
		t.Fatal("expected lenient csrf mode by default")
	}
}

func TestSessionMaxAgeSeconds(t *testing.T) {
	t.Setenv("SESSION_MAX_AGE", "3600")
	cfg := Load()
	if cfg.SessionMaxAge != time.Hour {
		t.Fatalf("expected 1h from seconds value, got %v", cfg.SessionMaxAge)
	}
}

func TestIsAdminEmail(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", "Admin@Example.com, ops@example.com")
	cfg := Load()

	if !cfg.IsAdminEmail("admin@example.com") {
		t.Fatal("expected case-insensitive admin match")
	}
	if !cfg.IsAdminEmail("ops@example.com") {
		t.Fatal("expected ops admin match")
	}
	if cfg.IsAdminEmail("user@example.com") {
		t.Fatal("did not expect admin match")
	}
}

func TestCookieSecureInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	cfg := Load()
	if !cfg.CookieSecure {
		t.Fatal("expected secure cookies in production")
	}
}
