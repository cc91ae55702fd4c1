// Package http wires the gin engine: middleware chain, route groups, and
// operational endpoints.
package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nimbusworks/nimbus/pkg/constants"
	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/config"
	"github.com/nimbusworks/nimbus/internal/domain/service"
	"github.com/nimbusworks/nimbus/internal/infrastructure/monitoring"
	"github.com/nimbusworks/nimbus/internal/interfaces/http/handlers"
	"github.com/nimbusworks/nimbus/internal/interfaces/http/middleware"
)

// RouterDeps collects everything the router needs.
type RouterDeps struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *monitoring.Metrics
	Tracing *monitoring.TracingManager
	Secrets service.SecretsProvider
	Limiter service.RateLimiter

	Auth       *handlers.AuthHandler
	Chat       *handlers.ChatHandler
	Quota      *handlers.QuotaHandler
	Cost       *handlers.CostHandler
	Catalog    *handlers.CatalogHandler
	Assistants *handlers.AssistantHandler
	Health     *handlers.HealthHandler
}

// NewRouter builds the fully wired engine.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(deps.Logger),
		middleware.Tracing(deps.Tracing),
		middleware.Logging(deps.Logger, deps.Metrics),
	)

	corsConfig := cors.DefaultConfig()
	if len(deps.Config.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = deps.Config.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", constants.HeaderRequestID)
	engine.Use(cors.New(corsConfig))

	// Operational endpoints.
	engine.GET("/healthz", deps.Health.Live)
	engine.GET("/readyz", deps.Health.Ready)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if deps.Config.Server.PprofEnabled {
		pprof.Register(engine)
	}

	rl := deps.Config.RateLimit
	rateLimit := func(scope constants.RateLimitScope, limit int) gin.HandlerFunc {
		window := rl.Window
		if window <= 0 {
			window = time.Minute
		}
		return middleware.RateLimit(deps.Limiter, scope, limit, window, deps.Metrics, deps.Logger)
	}

	// Login flow: unauthenticated, rate limited by client IP.
	auth := engine.Group("/auth")
	if rl.Enabled {
		auth.Use(rateLimit(constants.RateLimitScopeLogin, rl.LoginPerWindow))
	}
	auth.GET("/login", deps.Auth.Login)
	auth.GET("/token", deps.Auth.Token)
	auth.POST("/token", deps.Auth.Token)

	// Authenticated API surface.
	api := engine.Group("/api/v1")
	api.Use(middleware.RequireAuth(deps.Secrets, deps.Logger))

	sessions := api.Group("/sessions")
	sessions.POST("", deps.Chat.CreateSession)
	sessions.GET("", deps.Chat.ListSessions)
	sessions.GET("/:id", deps.Chat.GetSession)
	sessions.PATCH("/:id", deps.Chat.UpdateSession)
	sessions.DELETE("/:id", deps.Chat.DeleteSession)
	sessions.GET("/:id/messages", deps.Chat.ListMessages)
	if rl.Enabled {
		sessions.POST("/:id/messages", rateLimit(constants.RateLimitScopeMessages, rl.ChatPerWindow), deps.Chat.StreamMessage)
	} else {
		sessions.POST("/:id/messages", deps.Chat.StreamMessage)
	}

	api.GET("/models", deps.Catalog.ListModels)
	api.GET("/tools", deps.Catalog.ListTools)

	assistants := api.Group("/assistants")
	assistants.POST("", deps.Assistants.Create)
	assistants.GET("", deps.Assistants.List)
	assistants.GET("/:id", deps.Assistants.Get)
	assistants.PUT("/:id", deps.Assistants.Update)
	assistants.DELETE("/:id", deps.Assistants.Delete)

	// Admin surface.
	admin := api.Group("")
	admin.Use(middleware.RequireRole(constants.RoleAdmin))

	tiers := admin.Group("/admin/quota/tiers")
	tiers.POST("", deps.Quota.CreateTier)
	tiers.GET("", deps.Quota.ListTiers)
	tiers.PUT("/:id", deps.Quota.UpdateTier)
	tiers.DELETE("/:id", deps.Quota.DeleteTier)

	admin.PUT("/admin/quota/assignments", deps.Quota.Assign)
	admin.DELETE("/admin/quota/assignments/:user_id", deps.Quota.Unassign)
	admin.PUT("/admin/quota/overrides", deps.Quota.SetOverride)
	admin.DELETE("/admin/quota/overrides/:user_id", deps.Quota.ClearOverride)
	admin.GET("/admin/users/:user_id/usage", deps.Quota.UserUsage)

	admin.GET("/costs/summary", deps.Cost.Summary)
	admin.GET("/costs/users/:user_id", deps.Cost.UserSummary)

	managed := admin.Group("/admin/managed-models")
	managed.GET("", deps.Catalog.ListManagedModels)
	managed.POST("", deps.Catalog.CreateManagedModel)
	managed.PUT("/:id", deps.Catalog.UpdateManagedModel)
	managed.DELETE("/:id", deps.Catalog.DeleteManagedModel)

	return engine
}
