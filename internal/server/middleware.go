package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/terralink/portal/internal/auth/csrf"
	authdomain "github.com/terralink/portal/internal/auth/domain"
)

const contextSessionKey = "portal_session"

// maxCSRFBodyPeek bounds how much of a request body is buffered while
// looking for an inline csrfToken field.
const maxCSRFBodyPeek = 1 << 20

// AuthRequired resolves the bearer id to a live session and stashes it
// in the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := s.cookies.ReadBearer(c)
		if bearer == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.ValidateSession(c.Request.Context(), bearer)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextSessionKey, session)
		c.Next()
	}
}

// CSRFProtect enforces the per-session CSRF token on mutating
// endpoints. Must run after AuthRequired.
func (s *Server) CSRFProtect() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := currentSession(c)
		if session == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		presented := presentedCSRFToken(c)
		if err := csrf.Check(session.CSRFToken, presented, s.cfg.CSRFStrict); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// presentedCSRFToken reads the token from the header, falling back to a
// csrfToken field in a JSON body. The body is restored for the handler.
func presentedCSRFToken(c *gin.Context) string {
	if token := c.GetHeader(csrf.HeaderName); token != "" {
		return token
	}

	ct := c.GetHeader("Content-Type")
	if !strings.Contains(ct, "application/json") || c.Request.Body == nil {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCSRFBodyPeek))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), c.Request.Body))

	var fields struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	return fields.CSRFToken
}

// RequireAdmin gates a route on the admin role. Must run after
// AuthRequired.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := currentSession(c)
		if session == nil || session.User == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if session.User.Role != authdomain.RoleAdmin {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *authdomain.Session {
	v, ok := c.Get(contextSessionKey)
	if !ok {
		return nil
	}
	session, ok := v.(*authdomain.Session)
	if !ok {
		return nil
	}
	return session
}
