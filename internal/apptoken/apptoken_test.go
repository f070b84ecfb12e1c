package apptoken

import (
	"errors"
	"testing"
	"time"

	"github.com/terralink/portal/internal/auth/domain"
	"github.com/terralink/portal/internal/clock"
	"github.com/terralink/portal/internal/config"
)

func newTestIssuer(secret string) (*Issuer, *clock.FakeClock) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{JWTSecret: secret, AppTokenTTL: time.Hour}
	return NewIssuer(cfg, clk), clk
}

func testUser() *domain.User {
	return &domain.User{
		ExternalID:  "sub-42",
		Email:       "dev@terralink.cl",
		DisplayName: "Dev",
		Role:        domain.RoleStandard,
	}
}

func TestIssueAndVerify(t *testing.T) {
	issuer, clk := newTestIssuer("test-secret")

	token, expiresAt, err := issuer.Issue(testUser(), "crm", "Customer CRM")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if want := clk.Now().Add(time.Hour); !expiresAt.Equal(want) {
		t.Fatalf("expires at %v, want %v", expiresAt, want)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "sub-42" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.Email != "dev@terralink.cl" || claims.Role != "user" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.AppID != "crm" || claims.AppName != "Customer CRM" {
		t.Fatalf("app claims = %q %q", claims.AppID, claims.AppName)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer, clk := newTestIssuer("test-secret")

	token, _, err := issuer.Issue(testUser(), "crm", "Customer CRM")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clk.Advance(time.Hour + time.Second)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	issuer, _ := newTestIssuer("test-secret")

	token, _, err := issuer.Issue(testUser(), "crm", "Customer CRM")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Flip one character in the signature segment.
	tampered := []byte(token)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}
	if _, err := issuer.Verify(string(tampered)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := newTestIssuer("test-secret")
	other, _ := newTestIssuer("other-secret")

	token, _, err := issuer.Issue(testUser(), "crm", "Customer CRM")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestIssueRequiresSecret(t *testing.T) {
	issuer, _ := newTestIssuer("")
	if _, _, err := issuer.Issue(testUser(), "crm", "Customer CRM"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("err = %v, want ErrNoSecret", err)
	}
}
