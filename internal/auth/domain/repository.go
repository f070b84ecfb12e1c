package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindByExternalID(ctx context.Context, externalID string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// TouchSession updates last activity without extending expiry.
	TouchSession(ctx context.Context, id string, at time.Time) error
	// DeleteSession reports whether a row was removed; deleting an absent
	// session is not an error.
	DeleteSession(ctx context.Context, id string) (bool, error)
	DeleteSessionsByUser(ctx context.Context, userID snowflake.ID) (int64, error)
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
	ListActiveSessionIDs(ctx context.Context, now time.Time) (map[snowflake.ID][]string, error)
}
