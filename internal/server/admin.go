package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/terralink/portal/internal/auth/domain"
)

type adminUserPayload struct {
	userPayload
	ActiveSessions int        `json:"active_sessions"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedBy      string     `json:"updated_by,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokedBy      string     `json:"revoked_by,omitempty"`
}

// ListUsers returns every account with its live session count. Session
// ids themselves stay server-side.
func (s *Server) ListUsers(c *gin.Context) {
	overviews, err := s.authsvc.ListUsers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	users := make([]adminUserPayload, 0, len(overviews))
	for _, o := range overviews {
		u := o.User
		users = append(users, adminUserPayload{
			userPayload:    toUserPayload(&u),
			ActiveSessions: len(o.ActiveSessions),
			CreatedAt:      u.CreatedAt,
			UpdatedBy:      u.UpdatedBy,
			RevokedAt:      u.RevokedAt,
			RevokedBy:      u.RevokedBy,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (s *Server) UpdateUserRole(c *gin.Context) {
	email := strings.TrimSpace(c.Param("email"))
	if email == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	role, ok := authdomain.ParseRole(req.Role)
	if !ok {
		AbortWithError(c, authdomain.ErrInvalidRole)
		return
	}

	actor := currentSession(c).User.Email
	user, err := s.authsvc.UpdateUserRole(c.Request.Context(), email, role, actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserPayload(user)})
}

// RevokeUser disables the account and destroys all of its sessions.
func (s *Server) RevokeUser(c *gin.Context) {
	email := strings.TrimSpace(c.Param("email"))
	if email == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	actor := currentSession(c).User.Email
	result, err := s.authsvc.RevokeUser(c.Request.Context(), email, actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":             toUserPayload(result.User),
		"revoked_sessions": result.RevokedSessions,
	})
}

type domainPayload struct {
	Domain    string    `json:"domain"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

func (s *Server) ListDomains(c *gin.Context) {
	entries, err := s.domains.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]domainPayload, 0, len(entries))
	for _, e := range entries {
		out = append(out, domainPayload{
			Domain:    e.Domain,
			IsActive:  e.IsActive,
			CreatedAt: e.CreatedAt,
			CreatedBy: e.CreatedBy,
		})
	}
	c.JSON(http.StatusOK, gin.H{"domains": out})
}

type addDomainRequest struct {
	Domain string `json:"domain" binding:"required"`
}

func (s *Server) AddDomain(c *gin.Context) {
	var req addDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	actor := currentSession(c).User.Email
	entry, err := s.domains.Add(c.Request.Context(), req.Domain, actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"domain": domainPayload{
		Domain:    entry.Domain,
		IsActive:  entry.IsActive,
		CreatedAt: entry.CreatedAt,
		CreatedBy: entry.CreatedBy,
	}})
}

func (s *Server) RemoveDomain(c *gin.Context) {
	domain := strings.TrimSpace(c.Param("domain"))
	if domain == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.domains.Remove(c.Request.Context(), domain); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// ListApps exposes the app catalog to the admin console.
func (s *Server) ListApps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"apps": s.catalog.Apps()})
}
