package domain

import (
	"context"
	"time"
)

type Service interface {
	// UpsertUser creates or refreshes a user from a verified external
	// identity. Role is assigned on first creation only.
	UpsertUser(ctx context.Context, req UpsertUserRequest) (*User, error)

	// CreateSession issues a new session for the user and returns the
	// bearer id to be delivered out-of-band.
	CreateSession(ctx context.Context, user *User, clientIP, userAgent string) (*Session, string, error)

	// ValidateSession resolves a bearer id to a live session with its user
	// attached. The last-activity touch is best-effort.
	ValidateSession(ctx context.Context, bearerID string) (*Session, error)

	// DeleteSession is idempotent; it reports whether a row was removed.
	DeleteSession(ctx context.Context, bearerID string) (bool, error)

	// DeleteUserSessions bulk-deletes every session owned by the user with
	// the given email. Unknown emails delete zero rows without error.
	DeleteUserSessions(ctx context.Context, email string) (int64, error)

	// SweepExpiredSessions removes sessions past their absolute expiry.
	SweepExpiredSessions(ctx context.Context) (int64, error)

	// Admin operations.
	ListUsers(ctx context.Context) ([]UserOverview, error)
	UpdateUserRole(ctx context.Context, email string, role Role, actor string) (*User, error)
	RevokeUser(ctx context.Context, email string, actor string) (*RevokeResult, error)
}

type UpsertUserRequest struct {
	ExternalID  string
	Email       string
	DisplayName string
	Picture     string
	// AdminEmail marks emails that receive the admin role at creation.
	AdminEmail bool
}

// UserOverview is the admin listing row: a user plus its live session ids.
type UserOverview struct {
	User           User
	ActiveSessions []string
}

type RevokeResult struct {
	User            *User
	RevokedSessions int64
}

// SessionTTL carries session lifetime configuration into the service.
type SessionTTL struct {
	MaxAge time.Duration
}
