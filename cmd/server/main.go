package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/halcyon/model-bridge-api/cmd"
	"github.com/halcyon/model-bridge-api/internal/analytics"
	"github.com/halcyon/model-bridge-api/internal/cache"
	"github.com/halcyon/model-bridge-api/internal/config"
	"github.com/halcyon/model-bridge-api/internal/gateway"
	"github.com/halcyon/model-bridge-api/internal/platform/logger"
	"github.com/halcyon/model-bridge-api/internal/platform/otel"
	"github.com/halcyon/model-bridge-api/internal/resolver"
	"github.com/halcyon/model-bridge-api/internal/server"
	"github.com/halcyon/model-bridge-api/internal/server/validator"
	"github.com/halcyon/model-bridge-api/internal/store/sqlite"
	"github.com/halcyon/model-bridge-api/internal/upstream"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		if errors.Is(err, config.ErrMissingCredential) {
			log.Fatal("upstream credential is not configured; set UPSTREAM_API_KEY")
		}
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Initialize(logger.DefaultConfig())
	zlog := logger.Get()
	defer logger.Sync()

	validator.InitValidator()

	cmd.CheckForUpdates()

	if cfg.Tracing.Enabled {
		shutdown, err := otel.InitTracer("model-bridge-api", zlog, os.Stdout)
		if err != nil {
			zlog.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	// audit persistence is optional; without it the ingestor is a no-op
	// and the usage endpoints are not mounted
	ingestor := analytics.NewNop()
	var usage analytics.Service
	if cfg.Store.Enabled {
		repo, err := sqlite.NewSQLiteStorage(cfg.Store.Path)
		if err != nil {
			zlog.Fatal("failed to open audit store", zap.Error(err))
		}
		defer repo.Close()

		ingestor = analytics.NewIngestor(zlog, repo)
		usage = analytics.NewService(repo)
	}

	ingestCtx, stopIngest := context.WithCancel(context.Background())
	ingestor.Start(ingestCtx)
	defer stopIngest()
	defer ingestor.Stop()

	// shared probe-result cache, only when redis is configured
	var shared cache.Store
	if cfg.Redis.Enabled {
		rs := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rs.Ping(context.Background()); err != nil {
			zlog.Warn("redis unreachable, continuing without shared cache", zap.Error(err))
		} else {
			shared = rs
		}
	}

	client := upstream.NewClient(cfg.Upstream, zlog)
	res := resolver.New(cfg.Resolver, cfg.Thinking.Models, client, shared, ingestor, zlog)
	service := gateway.NewService(cfg.Thinking, res, client, ingestor, zlog)

	srv := server.New(cfg, zlog, service, res, usage)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		// streaming responses can legitimately run for minutes
		WriteTimeout: cfg.Upstream.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zlog.Info("starting model bridge",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.Server.Env),
			zap.String("upstream", cfg.Upstream.BaseURL),
			zap.String("version", cmd.AppVersion),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "forced shutdown: %v\n", err)
	}
}
