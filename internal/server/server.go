package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/terralink/portal/internal/activity"
	"github.com/terralink/portal/internal/appcatalog"
	"github.com/terralink/portal/internal/apptoken"
	authdomain "github.com/terralink/portal/internal/auth/domain"
	"github.com/terralink/portal/internal/auth/session"
	"github.com/terralink/portal/internal/config"
	"github.com/terralink/portal/internal/domainlist"
	"github.com/terralink/portal/internal/identity"
	"github.com/terralink/portal/internal/observability"
	obslogger "github.com/terralink/portal/internal/observability/logger"
	obsmetrics "github.com/terralink/portal/internal/observability/metrics"
	"github.com/terralink/portal/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, limiter *ratelimit.Limiter, m *obsmetrics.Metrics, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{Debug: obsCfg.Debug()}))
	r.Use(ratelimit.Middleware(limiter, cfg.RateLimitEnabled, m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, limiter *ratelimit.Limiter, m *obsmetrics.Metrics, log *zap.Logger) *gin.Engine {
	return NewEngine(cfg, obsCfg, limiter, m, log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.ListenAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	authsvc     authdomain.Service
	verifier    identity.Verifier
	cookies     *session.CookieManager
	tokens      *apptoken.Issuer
	domains     *domainlist.Service
	activitySvc *activity.Service
	catalog     *appcatalog.Catalog
	metrics     *obsmetrics.Metrics
	log         *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Authsvc     authdomain.Service
	Verifier    identity.Verifier
	Cookies     *session.CookieManager
	Tokens      *apptoken.Issuer
	Domains     *domainlist.Service
	ActivitySvc *activity.Service
	Catalog     *appcatalog.Catalog
	Metrics     *obsmetrics.Metrics `optional:"true"`
	Log         *zap.Logger
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		authsvc:     p.Authsvc,
		verifier:    p.Verifier,
		cookies:     p.Cookies,
		tokens:      p.Tokens,
		domains:     p.Domains,
		activitySvc: p.ActivitySvc,
		catalog:     p.Catalog,
		metrics:     p.Metrics,
		log:         p.Log.Named("http.server"),
	}

	s.registerAuthRoutes()
	s.registerActivityRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth")

	auth.POST("/google-callback", s.GoogleCallback)
	auth.GET("/session", s.AuthRequired(), s.GetSession)
	auth.POST("/logout", s.Logout)
	auth.POST("/app-token", s.AuthRequired(), s.CSRFProtect(), s.IssueAppToken)
	auth.POST("/validate-app-token", s.ValidateAppToken)
}

func (s *Server) registerActivityRoutes() {
	api := s.engine.Group("/api/activity", s.AuthRequired())

	api.GET("", s.ListActivity)
	api.POST("/track", s.CSRFProtect(), s.TrackActivity)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired(), s.RequireAdmin())

	admin.GET("/users", s.ListUsers)
	admin.PUT("/users/:email/role", s.CSRFProtect(), s.UpdateUserRole)
	admin.POST("/users/:email/revoke", s.CSRFProtect(), s.RevokeUser)

	admin.GET("/domains", s.ListDomains)
	admin.POST("/domains", s.CSRFProtect(), s.AddDomain)
	admin.DELETE("/domains/:domain", s.CSRFProtect(), s.RemoveDomain)

	admin.GET("/apps", s.ListApps)
}
