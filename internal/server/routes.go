package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/halcyon/model-bridge-api/internal/server/middleware"
	v1 "github.com/halcyon/model-bridge-api/internal/server/v1"
	"github.com/halcyon/model-bridge-api/pkg/api"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.ErrorHandler(s.logger))

	if s.config.Tracing.Enabled {
		s.router.Use(middleware.Tracing("model-bridge-api"))
	}

	if s.config.RateLimit.RequestsPerSecond > 0 {
		limiter := middleware.NewRateLimiter(
			s.config.RateLimit.RequestsPerSecond,
			s.config.RateLimit.Burst,
			s.logger,
		)
		s.router.Use(limiter.Middleware())
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.Envelope(
			api.NotFoundError("The requested resource does not exist"),
		))
	})

	// Health Check (Public)
	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)

	// API V1 Group
	group := s.router.Group("/v1")
	group.Use(middleware.Auth(s.config.Server.APIKeys)) // Require API Key for everything below
	{
		chatHandler := v1.NewChatHandler(s.service)
		group.POST("/chat/completions", chatHandler.CreateCompletion)

		modelsHandler := v1.NewModelHandler(s.resolver, s.config.Resolver.Fallback)
		group.GET("/models", modelsHandler.ListModels)

		if s.usage != nil {
			usageHandler := v1.NewUsageHandler(s.usage)
			group.GET("/usage", usageHandler.Overview)
			group.GET("/usage/requests", usageHandler.RecentRequests)
			group.GET("/usage/resolutions", usageHandler.Resolutions)
		}
	}
}
