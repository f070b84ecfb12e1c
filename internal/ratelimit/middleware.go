package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/terralink/portal/internal/observability/metrics"
)

// exempt paths never count against the limit.
var exempt = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// ClientID derives the limiter key for a request. The first entry of
// X-Forwarded-For wins so clients behind the portal's proxy are told
// apart; otherwise the socket address is used.
func ClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Middleware rejects requests over the limit with 429. Disabled limiters
// pass everything through.
func Middleware(limiter *Limiter, enabled bool, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled || exempt[c.Request.URL.Path] {
			c.Next()
			return
		}

		client := ClientID(c.Request)
		allowed := limiter.Allow(client)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(client)))

		if !allowed {
			m.RecordRateLimitDenied(c.Request.Context(), c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		m.RecordRateLimitAllowed(c.Request.Context(), c.FullPath())
		c.Next()
	}
}
