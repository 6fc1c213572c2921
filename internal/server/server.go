package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/halcyon/model-bridge-api/internal/analytics"
	"github.com/halcyon/model-bridge-api/internal/config"
	"github.com/halcyon/model-bridge-api/internal/gateway"
	"github.com/halcyon/model-bridge-api/internal/resolver"
	"go.uber.org/zap"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   *zap.Logger
	service  gateway.Service
	resolver *resolver.Resolver

	// nil unless the audit store is enabled
	usage analytics.Service
}

func New(cfg *config.Config, logger *zap.Logger, service gateway.Service, res *resolver.Resolver, usage analytics.Service) *Server {

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(logger, true))

	s := &Server{
		router:   engine,
		service:  service,
		logger:   logger,
		config:   cfg,
		resolver: res,
		usage:    usage,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
