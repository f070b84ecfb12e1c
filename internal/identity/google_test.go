package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newFakeVerifier(t *testing.T, handler http.HandlerFunc, clientID string) (Verifier, func()) {
	t.Helper()
	ts := httptest.NewServer(handler)
	v := &googleVerifier{
		clientID: clientID,
		endpoint: ts.URL,
		client:   &http.Client{Timeout: time.Second},
		log:      zap.NewNop(),
	}
	return v, ts.Close
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	v, done := newFakeVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"aud": "client-1",
			"sub": "sub-42",
			"email": "Dev@TerraLink.cl",
			"email_verified": "true",
			"name": "Dev",
			"picture": "https://example.com/p.png"
		}`))
	}, "client-1")
	defer done()

	id, err := v.Verify(context.Background(), "token")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.SubjectID != "sub-42" {
		t.Fatalf("subject = %q", id.SubjectID)
	}
	if id.Email != "dev@terralink.cl" {
		t.Fatalf("email not normalized: %q", id.Email)
	}
	if !id.EmailVerified {
		t.Fatal("email should be verified")
	}
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	v, done := newFakeVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"aud":"someone-else","sub":"sub-42","email":"dev@terralink.cl","email_verified":"true"}`))
	}, "client-1")
	defer done()

	if _, err := v.Verify(context.Background(), "token"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
}

func TestVerifyRejectsUpstreamError(t *testing.T) {
	v, done := newFakeVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusBadRequest)
	}, "client-1")
	defer done()

	if _, err := v.Verify(context.Background(), "token"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
}

func TestVerifyRejectsEmptyCredential(t *testing.T) {
	v, done := newFakeVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("endpoint should not be called")
	}, "client-1")
	defer done()

	if _, err := v.Verify(context.Background(), "  "); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
}
