// Package bootstrap assembles the stores and services shared by the API server and the operator CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/wellbeing-api/internal/repository"
	"github.com/noah-isme/wellbeing-api/internal/service"
	"github.com/noah-isme/wellbeing-api/internal/validation"
	"github.com/noah-isme/wellbeing-api/pkg/cache"
	"github.com/noah-isme/wellbeing-api/pkg/config"
	"github.com/noah-isme/wellbeing-api/pkg/database"
)

// App holds the wired dependencies.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Audits      *repository.AuditRepository
	Metrics     *service.MetricsService
	Sessions    *service.SessionService
	Auth        *service.AuthService
	Cleanup     *service.SessionCleanup
	Reports     *service.SessionReportService
	Guard       *service.RouteGuard
	Maintenance *service.MaintenanceTokens
}

// New connects to PostgreSQL (and Redis when the session cache is enabled)
// and builds the service graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger, DB: db, Metrics: service.NewMetricsService()}

	var cacheRepo service.CacheRepository
	if cfg.Session.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, session cache disabled", zap.Error(err))
		} else {
			app.Redis = client
			cacheRepo = repository.NewCacheRepository(client)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, app.Metrics, cfg.Session.CacheTTL, logger, cacheRepo != nil)

	policy, err := service.LoadRoutePolicy(cfg.Routing.PolicyFile)
	if err != nil {
		app.Close()
		return nil, err
	}

	users := repository.NewUserRepository(db)
	audits := repository.NewAuditRepository(db)
	app.Audits = audits

	app.Sessions = service.NewSessionService(repository.NewSessionRepository(db), cacheSvc, app.Metrics, logger, service.SessionConfig{
		TTL:           cfg.Session.TTL,
		SlidingExpiry: cfg.Session.SlidingExpiry,
	})
	app.Auth = service.NewAuthService(users, app.Sessions, service.NewPasswordHasher(cfg.Auth.BcryptCost), audits, validation.New(), app.Metrics, logger)
	app.Cleanup = service.NewSessionCleanup(app.Sessions, audits, logger)
	app.Reports = service.NewSessionReportService(app.Sessions, logger)
	app.Guard = service.NewRouteGuard(policy)
	app.Maintenance = service.NewMaintenanceTokens(cfg.Maintenance.TokenSecret, cfg.Maintenance.TokenTTL)

	return app, nil
}

// Close releases connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
