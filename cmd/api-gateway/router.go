package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/wellbeing-api/internal/bootstrap"
	"github.com/noah-isme/wellbeing-api/internal/handler"
	"github.com/noah-isme/wellbeing-api/internal/middleware"
	"github.com/noah-isme/wellbeing-api/internal/models"
	"github.com/noah-isme/wellbeing-api/pkg/config"
	"github.com/noah-isme/wellbeing-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/wellbeing-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/wellbeing-api/pkg/middleware/requestid"
)

func newRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(app.Logger))
	r.Use(middleware.Metrics(app.Metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	metricsHandler := handler.NewMetricsHandler(app.Metrics, app.DB)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	cookies := middleware.NewSessionCookies(cfg.Session, cfg.SecureCookies())
	session := middleware.Session(app.Sessions, cookies, app.Logger)

	authHandler := handler.NewAuthHandler(app.Auth, app.Guard, app.Cleanup, cookies, app.Logger)
	reportHandler := handler.NewSessionReportHandler(app.Reports, app.Logger)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/signout", authHandler.Signout)
	auth.GET("/session", authHandler.Session)
	auth.GET("/route", session, authHandler.Route)
	auth.POST("/session/cleanup", middleware.Maintenance(app.Maintenance), authHandler.Cleanup)

	admin := api.Group("/admin", session, middleware.RequireSession(), middleware.RequireRoles(models.RoleAdmin, models.RoleCounselor))
	admin.GET("/sessions/report", middleware.Audit(app.Audits, models.AuditActionSessionReport, "sessions", app.Logger), reportHandler.Download)

	if cfg.Frontend.Dir != "" {
		pages := handler.NewPageHandler(cfg.Frontend.Dir)
		r.NoRoute(session, middleware.RouteGuard(app.Guard, cfg.Frontend.PublicPrefixes...), pages.Serve)
	}

	return r
}
