// Package domain contains core types for the portal auth service.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the closed set of portal roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "user"
	RoleCustomer Role = "customer"
	RoleDefault  Role = "default"
)

// ParseRole maps a wire value onto the closed role set.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleStandard:
		return RoleStandard, true
	case RoleCustomer:
		return RoleCustomer, true
	case RoleDefault:
		return RoleDefault, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// User represents a portal user account. Users are never row-deleted;
// revocation flips IsActive and stamps the actor.
type User struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	ExternalID  string       `gorm:"column:external_id;type:text;not null;uniqueIndex"`
	Email       string       `gorm:"column:email;type:text;not null;uniqueIndex"`
	DisplayName string       `gorm:"column:display_name;type:text;not null"`
	Picture     string       `gorm:"column:picture;type:text"`
	Role        Role         `gorm:"column:role;type:text;not null"`
	IsActive    bool         `gorm:"column:is_active;not null;default:true"`
	LastLoginAt *time.Time   `gorm:"column:last_login_at"`
	CreatedAt   time.Time    `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;not null"`
	UpdatedBy   string       `gorm:"column:updated_by;type:text"`
	RevokedAt   *time.Time   `gorm:"column:revoked_at"`
	RevokedBy   string       `gorm:"column:revoked_by;type:text"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Domain returns the email domain, lower-cased.
func (u User) Domain() string {
	if at := strings.LastIndex(u.Email, "@"); at >= 0 {
		return strings.ToLower(u.Email[at+1:])
	}
	return ""
}

// Session is proof of authenticated presence. The primary key is the
// bearer id delivered to the client; it is a secret and must never be
// written to logs.
type Session struct {
	ID             string       `gorm:"primaryKey;type:text"`
	UserID         snowflake.ID `gorm:"column:user_id;not null;index"`
	CSRFToken      string       `gorm:"column:csrf_token;type:text;not null"`
	CreatedAt      time.Time    `gorm:"column:created_at;not null"`
	ExpiresAt      time.Time    `gorm:"column:expires_at;not null;index"`
	LastActivityAt time.Time    `gorm:"column:last_activity_at;not null"`
	IPAddress      string       `gorm:"column:ip_address;type:text"`
	UserAgent      string       `gorm:"column:user_agent;type:text"`

	User *User `gorm:"foreignKey:UserID"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Expired reports whether the session's absolute expiry has passed.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
