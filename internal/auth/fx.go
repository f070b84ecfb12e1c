package auth

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/terralink/portal/internal/auth/domain"
	authredis "github.com/terralink/portal/internal/auth/redis"
	"github.com/terralink/portal/internal/auth/repository"
	"github.com/terralink/portal/internal/auth/service"
	"github.com/terralink/portal/internal/auth/session"
	"github.com/terralink/portal/internal/clock"
	"github.com/terralink/portal/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("auth",
	fx.Provide(
		provideRepositories,
		provideSessionTTL,
		session.NewCookieManager,
		service.New,
	),
)

func provideSessionTTL(cfg config.Config) domain.SessionTTL {
	return domain.SessionTTL{MaxAge: cfg.SessionMaxAge}
}

// provideRepositories picks the session backend. Users always live in the
// relational store; sessions optionally move to Redis so expiry rides on
// key TTLs.
func provideRepositories(
	cfg config.Config,
	db *gorm.DB,
	clk clock.Clock,
	log *zap.Logger,
) (domain.UserRepository, domain.SessionRepository, error) {
	users, sessions := repository.New(db)
	if !cfg.UseRedisSessions {
		return users, sessions, nil
	}

	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	log.Info("using redis session store", zap.String("addr", opts.Addr))
	return users, authredis.New(goredis.NewClient(opts), clk), nil
}
