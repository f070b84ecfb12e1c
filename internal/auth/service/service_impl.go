package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/terralink/portal/internal/auth/domain"
	"github.com/terralink/portal/internal/clock"
	"go.uber.org/zap"
)

type svc struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	node     *snowflake.Node
	clock    clock.Clock
	ttl      domain.SessionTTL
	log      *zap.Logger
}

func New(
	users domain.UserRepository,
	sessions domain.SessionRepository,
	node *snowflake.Node,
	clk clock.Clock,
	ttl domain.SessionTTL,
	log *zap.Logger,
) domain.Service {
	return &svc{
		users:    users,
		sessions: sessions,
		node:     node,
		clock:    clk,
		ttl:      ttl,
		log:      log.Named("auth.service"),
	}
}

// randomToken returns n bytes of cryptographic randomness, hex-encoded.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (s *svc) UpsertUser(ctx context.Context, req domain.UpsertUserRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.FindByExternalID(ctx, req.ExternalID)
	if errors.Is(err, domain.ErrUserNotFound) {
		// The account may have been provisioned ahead of first login.
		user, err = s.users.FindByEmail(ctx, email)
	}
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	now := s.clock.Now()

	if user == nil {
		role := domain.RoleDefault
		if req.AdminEmail {
			role = domain.RoleAdmin
		}
		user = &domain.User{
			ID:          s.node.Generate(),
			ExternalID:  req.ExternalID,
			Email:       email,
			DisplayName: req.DisplayName,
			Picture:     req.Picture,
			Role:        role,
			IsActive:    true,
			LastLoginAt: &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		s.log.Info("user created",
			zap.String("user_id", user.ID.String()),
			zap.String("role", string(user.Role)),
		)
		return user, nil
	}

	// Inactive accounts keep their profile fresh; the block happens at
	// session creation.
	fields := map[string]any{
		"external_id":   req.ExternalID,
		"display_name":  req.DisplayName,
		"picture":       req.Picture,
		"last_login_at": now,
		"updated_at":    now,
	}
	if err := s.users.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	user.ExternalID = req.ExternalID
	user.DisplayName = req.DisplayName
	user.Picture = req.Picture
	user.LastLoginAt = &now
	user.UpdatedAt = now
	return user, nil
}

func (s *svc) CreateSession(ctx context.Context, user *domain.User, clientIP, userAgent string) (*domain.Session, string, error) {
	if user == nil {
		return nil, "", domain.ErrUserNotFound
	}
	if !user.IsActive {
		return nil, "", domain.ErrUserInactive
	}

	bearerID, err := randomToken(32)
	if err != nil {
		return nil, "", err
	}
	csrfToken, err := randomToken(32)
	if err != nil {
		return nil, "", err
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:             bearerID,
		UserID:         user.ID,
		CSRFToken:      csrfToken,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl.MaxAge),
		LastActivityAt: now,
		IPAddress:      clientIP,
		UserAgent:      userAgent,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, "", err
	}

	s.log.Info("session created", zap.String("user_id", user.ID.String()))
	return session, bearerID, nil
}

func (s *svc) ValidateSession(ctx context.Context, bearerID string) (*domain.Session, error) {
	if bearerID == "" {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.sessions.GetSession(ctx, bearerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if session.Expired(now) {
		if _, err := s.sessions.DeleteSession(ctx, bearerID); err != nil {
			s.log.Warn("delete expired session", zap.Error(err))
		}
		return nil, domain.ErrSessionExpired
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	// Best-effort; validation must not fail on a lost touch.
	if err := s.sessions.TouchSession(ctx, bearerID, now); err != nil {
		s.log.Warn("touch session", zap.Error(err))
	} else {
		session.LastActivityAt = now
	}

	session.User = user
	return session, nil
}

func (s *svc) DeleteSession(ctx context.Context, bearerID string) (bool, error) {
	if bearerID == "" {
		return false, nil
	}
	return s.sessions.DeleteSession(ctx, bearerID)
}

func (s *svc) DeleteUserSessions(ctx context.Context, email string) (int64, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.sessions.DeleteSessionsByUser(ctx, user.ID)
}

func (s *svc) SweepExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := s.sessions.DeleteExpiredSessions(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("expired sessions swept", zap.Int64("removed", removed))
	}
	return removed, nil
}

func (s *svc) ListUsers(ctx context.Context) ([]domain.UserOverview, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.sessions.ListActiveSessionIDs(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserOverview, 0, len(users))
	for _, u := range users {
		out = append(out, domain.UserOverview{
			User:           u,
			ActiveSessions: active[u.ID],
		})
	}
	return out, nil
}

func (s *svc) UpdateUserRole(ctx context.Context, email string, role domain.Role, actor string) (*domain.User, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	fields := map[string]any{
		"role":       role,
		"updated_at": now,
		"updated_by": actor,
	}
	if err := s.users.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}

	s.log.Info("user role updated",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role)),
	)

	user.Role = role
	user.UpdatedAt = now
	user.UpdatedBy = actor
	return user, nil
}

func (s *svc) RevokeUser(ctx context.Context, email string, actor string) (*domain.RevokeResult, error) {
	if strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(actor)) {
		return nil, domain.ErrSelfRevoke
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	removed, err := s.sessions.DeleteSessionsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	fields := map[string]any{
		"is_active":  false,
		"revoked_at": now,
		"revoked_by": actor,
		"updated_at": now,
		"updated_by": actor,
	}
	if err := s.users.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}

	s.log.Info("user revoked",
		zap.String("user_id", user.ID.String()),
		zap.Int64("sessions_removed", removed),
	)

	user.IsActive = false
	user.RevokedAt = &now
	user.RevokedBy = actor
	user.UpdatedAt = now
	user.UpdatedBy = actor
	return &domain.RevokeResult{User: user, RevokedSessions: removed}, nil
}
