package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/terralink/portal/internal/config"
)

func testManager() *CookieManager {
	return NewCookieManager(config.Config{
		CookieName:     "portal_session",
		CookieHTTPOnly: true,
		CookieSameSite: "lax",
		SessionMaxAge:  30 * 24 * time.Hour,
	})
}

func ginContext(req *http.Request) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestReadBearerPrefersHeader(t *testing.T) {
	m := testManager()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: "from-cookie"})
	if got := m.ReadBearer(ginContext(req)); got != "from-header" {
		t.Fatalf("bearer = %q, want header value", got)
	}
}

func TestReadBearerFallsBackToCookie(t *testing.T) {
	m := testManager()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: "from-cookie"})
	if got := m.ReadBearer(ginContext(req)); got != "from-cookie" {
		t.Fatalf("bearer = %q, want cookie value", got)
	}
}

func TestReadBearerRejectsMalformedHeader(t *testing.T) {
	m := testManager()

	// A present but malformed header must not fall through to the cookie.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: "from-cookie"})
	if got := m.ReadBearer(ginContext(req)); got != "" {
		t.Fatalf("bearer = %q, want empty", got)
	}
}

func TestReadBearerEmptyRequest(t *testing.T) {
	m := testManager()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := m.ReadBearer(ginContext(req)); got != "" {
		t.Fatalf("bearer = %q, want empty", got)
	}
}

func TestSetAndClear(t *testing.T) {
	m := testManager()

	w := httptest.NewRecorder()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	m.Set(c, "bearer-value")
	res := w.Result()
	cookies := res.Cookies()
	if len(cookies) != 1 || cookies[0].Value != "bearer-value" {
		t.Fatalf("cookies = %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatal("cookie must be http-only")
	}
	if cookies[0].MaxAge != int((30 * 24 * time.Hour).Seconds()) {
		t.Fatalf("max age = %d", cookies[0].MaxAge)
	}

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	c2.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	m.Clear(c2)
	cleared := w2.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("clear cookies = %+v", cleared)
	}
}
