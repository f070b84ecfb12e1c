package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/terralink/portal/internal/activity"
	authdomain "github.com/terralink/portal/internal/auth/domain"
)

type trackActivityRequest struct {
	App      string         `json:"app" binding:"required"`
	Action   string         `json:"action" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) TrackActivity(c *gin.Context) {
	session := currentSession(c)
	if session == nil || session.User == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req trackActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	appName := req.App
	if app, ok := s.catalog.Lookup(req.App); ok {
		appName = app.Name
	}

	userID := session.User.ID
	entry, err := s.activitySvc.Track(c.Request.Context(), activity.Record{
		UserID:     &userID,
		UserEmail:  session.User.Email,
		UserRole:   string(session.User.Role),
		UserDomain: session.User.Domain(),
		App:        req.App,
		AppName:    appName,
		Action:     req.Action,
		Metadata:   req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": entry.ID, "created_at": entry.CreatedAt})
}

type activityPayload struct {
	ID         string         `json:"id"`
	UserEmail  string         `json:"user_email"`
	UserRole   string         `json:"user_role,omitempty"`
	UserDomain string         `json:"user_domain,omitempty"`
	App        string         `json:"app"`
	AppName    string         `json:"app_name,omitempty"`
	Action     string         `json:"action"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ListActivity returns recent entries. Admins may filter by user and
// app; everyone else only sees their own trail.
func (s *Server) ListActivity(c *gin.Context) {
	session := currentSession(c)
	if session == nil || session.User == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	filter := activity.Filter{
		App: strings.TrimSpace(c.Query("app")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		filter.Limit = limit
	}

	if session.User.Role == authdomain.RoleAdmin {
		filter.UserEmail = strings.TrimSpace(c.Query("user_email"))
	} else {
		filter.UserEmail = session.User.Email
	}

	entries, err := s.activitySvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]activityPayload, 0, len(entries))
	for _, e := range entries {
		out = append(out, activityPayload{
			ID:         e.ID,
			UserEmail:  e.UserEmail,
			UserRole:   e.UserRole,
			UserDomain: e.UserDomain,
			App:        e.App,
			AppName:    e.AppName,
			Action:     e.Action,
			Metadata:   map[string]any(e.Metadata),
			CreatedAt:  e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"activities": out})
}
