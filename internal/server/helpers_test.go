package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/terralink/portal/internal/activity"
	"github.com/terralink/portal/internal/appcatalog"
	"github.com/terralink/portal/internal/apptoken"
	authdomain "github.com/terralink/portal/internal/auth/domain"
	"github.com/terralink/portal/internal/auth/repository"
	authservice "github.com/terralink/portal/internal/auth/service"
	authsession "github.com/terralink/portal/internal/auth/session"
	"github.com/terralink/portal/internal/clock"
	"github.com/terralink/portal/internal/config"
	"github.com/terralink/portal/internal/domainlist"
	"github.com/terralink/portal/internal/identity"
	"github.com/terralink/portal/internal/observability"
	"github.com/terralink/portal/internal/ratelimit"
	"github.com/terralink/portal/pkg/db"
	"go.uber.org/zap"
)

type stubVerifier struct {
	identity *identity.Identity
	err      error
}

func (v *stubVerifier) Verify(ctx context.Context, credential string) (*identity.Identity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}

type testEnv struct {
	server   *Server
	verifier *stubVerifier
	clock    *clock.FakeClock
	cfg      config.Config
}

func defaultTestConfig() config.Config {
	return config.Config{
		FrontendURL:    "http://localhost:6001",
		SessionMaxAge:  30 * 24 * time.Hour,
		CookieName:     "portal_session",
		CookieHTTPOnly: true,
		CookieSameSite: "lax",
		JWTSecret:      "test-secret",
		AppTokenTTL:    time.Hour,
		RateLimitMax:   100,
		RateLimitWindow: time.Minute,
		AdminEmails:    []string{"admin@terralink.cl"},
	}
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&domainlist.Entry{},
		&activity.Entry{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	users, sessions := repository.New(conn)
	authsvc := authservice.New(users, sessions, node, clk, authdomain.SessionTTL{MaxAge: cfg.SessionMaxAge}, log)

	catalog, err := appcatalog.New(cfg.AppCatalogFile, log)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	verifier := &stubVerifier{}
	limiter := ratelimit.NewLimiter(cfg, clk)
	engine := NewEngine(cfg, observability.Config{}, limiter, nil, log)

	srv := NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		Authsvc:     authsvc,
		Verifier:    verifier,
		Cookies:     authsession.NewCookieManager(cfg),
		Tokens:      apptoken.NewIssuer(cfg, clk),
		Domains:     domainlist.New(conn, node, clk, cfg, log),
		ActivitySvc: activity.New(conn, clk, log),
		Catalog:     catalog,
		Log:         log,
	})

	return &testEnv{server: srv, verifier: verifier, clock: clk, cfg: cfg}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type loginResult struct {
	cookie *http.Cookie
	csrf   string
}

// login runs the callback flow for the given identity and fetches the
// CSRF token from the session endpoint.
func (e *testEnv) login(t *testing.T, id identity.Identity) loginResult {
	t.Helper()
	e.verifier.identity = &id
	e.verifier.err = nil

	w := e.do(jsonRequest(t, http.MethodPost, "/api/auth/google-callback", gin.H{"credential": "stub"}))
	if w.Code != http.StatusFound {
		t.Fatalf("callback status = %d, want 302 (location %q)", w.Code, w.Header().Get("Location"))
	}
	if loc := w.Header().Get("Location"); loc != e.cfg.FrontendURL {
		t.Fatalf("callback redirected to %q", loc)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == e.cfg.CookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("callback did not set the session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(cookie)
	sw := e.do(req)
	if sw.Code != http.StatusOK {
		t.Fatalf("session status = %d", sw.Code)
	}
	var payload struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(sw.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if payload.CSRFToken == "" {
		t.Fatal("session response missing csrf token")
	}
	return loginResult{cookie: cookie, csrf: payload.CSRFToken}
}

func testIdentity(email string) identity.Identity {
	return identity.Identity{
		SubjectID:     "sub-" + email,
		Email:         email,
		Name:          "Test User",
		EmailVerified: true,
	}
}
