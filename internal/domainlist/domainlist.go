// Package domainlist decides which email domains may sign in. Entries
// live in the database; the static ALLOWED_DOMAINS config acts as a
// fallback seed so a fresh deployment is not locked open or shut.
package domainlist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/terralink/portal/internal/clock"
	"github.com/terralink/portal/internal/config"
	"github.com/terralink/portal/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrDomainExists   = errors.New("domain already whitelisted")
	ErrDomainNotFound = errors.New("domain not found")
	ErrInvalidDomain  = errors.New("invalid domain")
)

// Entry is a whitelisted email domain.
type Entry struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Domain    string       `gorm:"column:domain;type:text;not null;uniqueIndex"`
	IsActive  bool         `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time    `gorm:"column:created_at;not null"`
	CreatedBy string       `gorm:"column:created_by;type:text"`
}

func (Entry) TableName() string { return "allowed_domains" }

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    clock.Clock
	fallback []string
	log      *zap.Logger
}

func New(conn *gorm.DB, node *snowflake.Node, clk clock.Clock, cfg config.Config, log *zap.Logger) *Service {
	fallback := make([]string, 0, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		fallback = append(fallback, normalize(d))
	}
	return &Service{
		db:       conn,
		node:     node,
		clock:    clk,
		fallback: fallback,
		log:      log.Named("domainlist.service"),
	}
}

func normalize(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimPrefix(d, "@")
}

func domainOf(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return normalize(email[at+1:])
	}
	return ""
}

// Allowed reports whether the email's domain may sign in. With no active
// rows in the table the static fallback list applies; an empty fallback
// admits every domain.
func (s *Service) Allowed(ctx context.Context, email string) (bool, error) {
	domain := domainOf(email)
	if domain == "" {
		return false, nil
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&Entry{}).Where("is_active = ?", true).Count(&total).Error; err != nil {
		return false, err
	}

	if total == 0 {
		if len(s.fallback) == 0 {
			return true, nil
		}
		for _, d := range s.fallback {
			if d == domain {
				return true, nil
			}
		}
		return false, nil
	}

	var match int64
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Where("domain = ? AND is_active = ?", domain, true).
		Count(&match).Error
	if err != nil {
		return false, err
	}
	return match > 0, nil
}

// List returns every entry, active or not, newest first.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Add whitelists a domain. Re-adding an inactive entry reactivates it.
func (s *Service) Add(ctx context.Context, raw, actor string) (*Entry, error) {
	domain := normalize(raw)
	if domain == "" || !strings.Contains(domain, ".") {
		return nil, ErrInvalidDomain
	}

	var existing Entry
	err := s.db.WithContext(ctx).Where("domain = ?", domain).First(&existing).Error
	if err == nil {
		if existing.IsActive {
			return nil, ErrDomainExists
		}
		if err := s.db.WithContext(ctx).Model(&existing).Update("is_active", true).Error; err != nil {
			return nil, err
		}
		existing.IsActive = true
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entry := &Entry{
		ID:        s.node.Generate(),
		Domain:    domain,
		IsActive:  true,
		CreatedAt: s.clock.Now(),
		CreatedBy: actor,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, ErrDomainExists
		}
		return nil, err
	}

	s.log.Info("domain whitelisted", zap.String("domain", domain))
	return entry, nil
}

// Remove deactivates a whitelisted domain. The row stays for audit.
func (s *Service) Remove(ctx context.Context, raw string) error {
	domain := normalize(raw)

	tx := s.db.WithContext(ctx).Model(&Entry{}).
		Where("domain = ? AND is_active = ?", domain, true).
		Update("is_active", false)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrDomainNotFound
	}

	s.log.Info("domain removed", zap.String("domain", domain))
	return nil
}
