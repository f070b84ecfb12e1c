// Package migration applies the schema at startup.
package migration

import (
	"github.com/terralink/portal/internal/activity"
	authdomain "github.com/terralink/portal/internal/auth/domain"
	"github.com/terralink/portal/internal/domainlist"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

func Run(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&domainlist.Entry{},
		&activity.Entry{},
	)
	if err != nil {
		return err
	}
	log.Info("schema migrated")
	return nil
}
