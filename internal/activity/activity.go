// Package activity records user actions across the portal for the admin
// audit trail.
package activity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/terralink/portal/internal/clock"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Entry is one recorded user action. The user columns are denormalized
// so the trail stays readable after an account is revoked or renamed.
type Entry struct {
	ID         string            `gorm:"primaryKey;type:text"`
	UserID     *snowflake.ID     `gorm:"column:user_id;index"`
	UserEmail  string            `gorm:"column:user_email;type:text;not null;index"`
	UserRole   string            `gorm:"column:user_role;type:text"`
	UserDomain string            `gorm:"column:user_domain;type:text;index"`
	App        string            `gorm:"column:app;type:text;not null;index"`
	AppName    string            `gorm:"column:app_name;type:text"`
	Action     string            `gorm:"column:action;type:text;not null"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null;index"`
}

func (Entry) TableName() string { return "activity_logs" }

// Record carries one action into Track.
type Record struct {
	UserID     *snowflake.ID
	UserEmail  string
	UserRole   string
	UserDomain string
	App        string
	AppName    string
	Action     string
	Metadata   map[string]any
}

// Filter narrows a listing. Zero values mean no constraint.
type Filter struct {
	UserEmail string
	App       string
	Limit     int
}

type Service struct {
	db    *gorm.DB
	clock clock.Clock
	log   *zap.Logger
}

func New(conn *gorm.DB, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{db: conn, clock: clk, log: log.Named("activity.service")}
}

// newEntryID builds an id like act_1717243200_9f3a11c2. Collisions inside
// one second are broken by the random suffix.
func newEntryID(now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("act_%d_%s", now.Unix(), hex.EncodeToString(buf)), nil
}

// Track appends one action to the log.
func (s *Service) Track(ctx context.Context, rec Record) (*Entry, error) {
	now := s.clock.Now()
	id, err := newEntryID(now)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:         id,
		UserID:     rec.UserID,
		UserEmail:  strings.ToLower(strings.TrimSpace(rec.UserEmail)),
		UserRole:   strings.TrimSpace(rec.UserRole),
		UserDomain: strings.ToLower(strings.TrimSpace(rec.UserDomain)),
		App:        strings.TrimSpace(rec.App),
		AppName:    strings.TrimSpace(rec.AppName),
		Action:     strings.TrimSpace(rec.Action),
		Metadata:   datatypes.JSONMap(rec.Metadata),
		CreatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns entries newest first. Limit is clamped to [1, 1000] with a
// default of 100.
func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	q := s.db.WithContext(ctx).Model(&Entry{})
	if filter.UserEmail != "" {
		q = q.Where("user_email = ?", strings.ToLower(strings.TrimSpace(filter.UserEmail)))
	}
	if filter.App != "" {
		q = q.Where("app = ?", filter.App)
	}

	var entries []Entry
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
