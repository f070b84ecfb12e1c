// Package session moves bearer ids between the service and the client.
// The Authorization header takes precedence over the cookie so that API
// clients and the browser flow share one code path.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/terralink/portal/internal/config"
)

type CookieManager struct {
	name     string
	domain   string
	path     string
	maxAge   time.Duration
	secure   bool
	httpOnly bool
	sameSite http.SameSite
}

func NewCookieManager(cfg config.Config) *CookieManager {
	return &CookieManager{
		name:     cfg.CookieName,
		domain:   cfg.CookieDomain,
		path:     "/",
		maxAge:   cfg.SessionMaxAge,
		secure:   cfg.CookieSecure,
		httpOnly: cfg.CookieHTTPOnly,
		sameSite: parseSameSite(cfg.CookieSameSite),
	}
}

func parseSameSite(raw string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Set writes the session cookie carrying the bearer id.
func (m *CookieManager) Set(c *gin.Context, bearerID string) {
	c.SetSameSite(m.sameSite)
	c.SetCookie(m.name, bearerID, int(m.maxAge.Seconds()), m.path, m.domain, m.secure, m.httpOnly)
}

// Clear expires the session cookie.
func (m *CookieManager) Clear(c *gin.Context) {
	c.SetSameSite(m.sameSite)
	c.SetCookie(m.name, "", -1, m.path, m.domain, m.secure, m.httpOnly)
}

// ReadBearer extracts the bearer id from the request. A non-empty
// Authorization header wins over the cookie.
func (m *CookieManager) ReadBearer(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}

	cookie, err := c.Cookie(m.name)
	if err != nil {
		return ""
	}
	return cookie
}
