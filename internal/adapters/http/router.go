package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/config"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds API calls when RouterConfig leaves it zero.
const DefaultRequestTimeout = 10 * time.Second

// sweepRoute runs without the request deadline; a sweep may touch many quotes.
const sweepRoute = "/api/v1/admin/quotes/expire-overdue"

// RouterConfig carries everything SetupRouter mounts. Nil handlers leave
// their routes unregistered.
type RouterConfig struct {
	ServiceName    string
	Auth           *config.AuthConfig
	RequestTimeout time.Duration

	Health  *handlers.HealthHandler
	Quotes  *handlers.QuoteHandler
	Catalog *handlers.CatalogHandler
	Admin   *handlers.AdminHandler
}

// SetupRouter installs the middleware chain and every route.
//
// Middleware order: recovery, request id, correlation id, tracing, HTTP
// metrics, access log, caller identity. /-/ carries the probes and
// metrics; /api/v1 carries the quotation API under a request deadline.
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.TracingMiddleware(cfg.ServiceName),
		telemetry.Middleware(),
		middleware.Logging(),
		middleware.Identify(cfg.Auth),
	)

	if cfg.Health != nil {
		cfg.Health.RegisterHealthRoutes(engine.Group("/-"))
	}

	api := engine.Group("/api/v1", middleware.Deadline(cfg.RequestTimeout, sweepRoute))
	admin := middleware.RequireRole(cfg.Auth, adminRole(cfg.Auth))

	if q := cfg.Quotes; q != nil {
		quotes := api.Group("/quotes")
		quotes.POST("", q.Create)
		quotes.GET("", q.List)
		quotes.GET("/:id", q.Get)
		quotes.POST("/:id/issue", q.Issue)
		quotes.POST("/:id/accept", q.Accept)
		quotes.POST("/:id/cancel", q.Cancel)
		quotes.POST("/:id/expire", admin, q.Expire)
		quotes.GET("/:id/document", q.Document)
	}

	if c := cfg.Catalog; c != nil {
		api.GET("/rates", c.ListRates)
		api.GET("/accessorials", c.ListAccessorials)
	}

	if a := cfg.Admin; a != nil {
		api.Group("/admin", admin).POST("/quotes/expire-overdue", a.ExpireOverdue)
	}
}

func adminRole(auth *config.AuthConfig) string {
	if auth == nil || auth.AdminRole == "" {
		return config.DefaultAdminRole
	}

	return auth.AdminRole
}
