package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/universal-data-connector/backend/internal/ai"
	"github.com/universal-data-connector/backend/internal/auth"
	"github.com/universal-data-connector/backend/internal/cache"
	"github.com/universal-data-connector/backend/internal/config"
	"github.com/universal-data-connector/backend/internal/connector"
	"github.com/universal-data-connector/backend/internal/export"
	"github.com/universal-data-connector/backend/internal/http/handlers"
	"github.com/universal-data-connector/backend/internal/http/middleware"
	"github.com/universal-data-connector/backend/internal/query"
	"github.com/universal-data-connector/backend/internal/webhook"

	_ "github.com/universal-data-connector/backend/docs"
)

// Deps carries the wired services the router hands to the handlers.
type Deps struct {
	Executor  *query.Executor
	Customers connector.CustomerProvider
	Tickets   connector.TicketProvider
	Metrics   connector.MetricProvider
	Store     *connector.PostgresStore
	Gateway   ai.Gateway
	Auth      *auth.Service
	Cache     *cache.Cache
	Export    *export.Service
	Webhooks  *webhook.Service
	Logger    zerolog.Logger
}

func Router(cfg config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		r.Use(limiter.Middleware())
	}

	h := &handlers.Handler{
		Executor:     deps.Executor,
		Customers:    deps.Customers,
		Tickets:      deps.Tickets,
		Metrics:      deps.Metrics,
		Store:        deps.Store,
		Gateway:      deps.Gateway,
		Auth:         deps.Auth,
		Cache:        deps.Cache,
		Export:       deps.Export,
		Webhooks:     deps.Webhooks,
		Validator:    validator.New(),
		Logger:       deps.Logger,
		DataDir:      cfg.DataDir,
		DefaultLimit: cfg.DefaultLimit,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.Use(middleware.APIKey(deps.Auth))
	{
		api.POST("/query", h.ExecuteQuery)
		api.GET("/data/customers", h.CustomersList)
		api.GET("/data/support-tickets", h.TicketsList)
		api.GET("/data/analytics", h.MetricsList)
		api.GET("/llm/usage", h.LLMUsage)
		if cfg.ExportEnabled {
			api.GET("/export/:source", h.ExportData)
		}
		api.POST("/webhooks", h.WebhookRegister)
		api.GET("/webhooks", h.WebhookList)
		api.DELETE("/webhooks/:id", h.WebhookDelete)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/auth/keys", h.GenerateKey)
		admin.GET("/auth/keys", h.ListKeys)
		admin.POST("/admin/seed", h.SeedDatabase)
		admin.POST("/admin/generate-data", h.GenerateData)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
