package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/terralink/portal/internal/auth/csrf"
	authdomain "github.com/terralink/portal/internal/auth/domain"
	"github.com/terralink/portal/internal/identity"
	"go.uber.org/zap"
)

// Redirect error codes understood by the frontend login page.
const (
	loginErrInvalidToken     = "invalid_token"
	loginErrEmailNotVerified = "email_not_verified"
	loginErrDomainNotAllowed = "domain_not_allowed"
	loginErrAccountDisabled  = "account_disabled"
	loginErrServer           = "server_error"
)

type googleCallbackRequest struct {
	Credential string `json:"credential" form:"credential"`
}

func (s *Server) redirectWithError(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, s.cfg.FrontendURL+"/?error="+code)
}

// GoogleCallback finishes the sign-in flow: the frontend posts the Google
// credential, the portal verifies it, applies the domain whitelist, and
// answers with a redirect carrying either the session cookie or an error
// code in the query string.
func (s *Server) GoogleCallback(c *gin.Context) {
	var req googleCallbackRequest
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.Credential) == "" {
		s.redirectWithError(c, loginErrInvalidToken)
		return
	}

	id, err := s.verifier.Verify(c.Request.Context(), req.Credential)
	if err != nil {
		if !errors.Is(err, identity.ErrInvalidCredential) {
			s.log.Error("verify credential", zap.Error(err))
			s.redirectWithError(c, loginErrServer)
			return
		}
		s.redirectWithError(c, loginErrInvalidToken)
		return
	}

	if !id.EmailVerified {
		s.redirectWithError(c, loginErrEmailNotVerified)
		return
	}

	allowed, err := s.domains.Allowed(c.Request.Context(), id.Email)
	if err != nil {
		s.log.Error("domain check", zap.Error(err))
		s.redirectWithError(c, loginErrServer)
		return
	}
	if !allowed {
		s.redirectWithError(c, loginErrDomainNotAllowed)
		return
	}

	user, err := s.authsvc.UpsertUser(c.Request.Context(), authdomain.UpsertUserRequest{
		ExternalID:  id.SubjectID,
		Email:       id.Email,
		DisplayName: id.Name,
		Picture:     id.Picture,
		AdminEmail:  s.cfg.IsAdminEmail(id.Email),
	})
	if err != nil {
		s.log.Error("upsert user", zap.Error(err))
		s.redirectWithError(c, loginErrServer)
		return
	}

	_, bearer, err := s.authsvc.CreateSession(c.Request.Context(), user, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, authdomain.ErrUserInactive) {
			s.redirectWithError(c, loginErrAccountDisabled)
			return
		}
		s.log.Error("create session", zap.Error(err))
		s.redirectWithError(c, loginErrServer)
		return
	}

	s.metrics.RecordSessionCreated(c.Request.Context())
	s.cookies.Set(c, bearer)
	c.Redirect(http.StatusFound, s.cfg.FrontendURL)
}

type userPayload struct {
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Picture     string     `json:"picture,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func toUserPayload(u *authdomain.User) userPayload {
	return userPayload{
		Email:       u.Email,
		Name:        u.DisplayName,
		Picture:     u.Picture,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
	}
}

// GetSession returns the current user plus the CSRF token the frontend
// must echo on mutating requests.
func (s *Server) GetSession(c *gin.Context) {
	session := currentSession(c)
	if session == nil || session.User == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       toUserPayload(session.User),
		"csrf_token": session.CSRFToken,
		"expires_at": session.ExpiresAt,
	})
}

// Logout deletes the session and clears the cookie. Succeeds even when
// the session is already gone. A presented CSRF token must match.
func (s *Server) Logout(c *gin.Context) {
	bearer := s.cookies.ReadBearer(c)
	if bearer != "" {
		if presented := presentedCSRFToken(c); presented != "" {
			session, err := s.authsvc.ValidateSession(c.Request.Context(), bearer)
			if err == nil {
				if err := csrf.Check(session.CSRFToken, presented, s.cfg.CSRFStrict); err != nil {
					AbortWithError(c, err)
					return
				}
			}
		}
		if _, err := s.authsvc.DeleteSession(c.Request.Context(), bearer); err != nil {
			s.log.Error("delete session", zap.Error(err))
		}
	}
	s.cookies.Clear(c)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

type appTokenRequest struct {
	AppID   string `json:"app_id" binding:"required"`
	AppName string `json:"app_name"`
}

// IssueAppToken signs a delegated token scoped to one catalog app.
func (s *Server) IssueAppToken(c *gin.Context) {
	session := currentSession(c)
	if session == nil || session.User == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req appTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	appName, ok := s.catalog.Resolve(req.AppID, req.AppName)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	token, expiresAt, err := s.tokens.Issue(session.User, req.AppID, appName)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordAppTokenIssued(c.Request.Context(), req.AppID)
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}

type validateAppTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// ValidateAppToken lets target applications check a delegated token.
// Invalid tokens answer 200 with valid=false so callers need not branch
// on status codes.
func (s *Server) ValidateAppToken(c *gin.Context) {
	var req validateAppTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	claims, err := s.tokens.Verify(req.Token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"user": gin.H{
			"sub":   claims.Subject,
			"email": claims.Email,
			"name":  claims.Name,
			"role":  claims.Role,
		},
		"app_id":     claims.AppID,
		"app_name":   claims.AppName,
		"expires_at": claims.ExpiresAt.Time,
	})
}
