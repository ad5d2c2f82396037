package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/portal-sabido-api/api/swagger"
	"github.com/noah-isme/portal-sabido-api/internal/bootstrap"
	"github.com/noah-isme/portal-sabido-api/internal/handler"
	"github.com/noah-isme/portal-sabido-api/internal/router"
	"github.com/noah-isme/portal-sabido-api/pkg/cache"
	"github.com/noah-isme/portal-sabido-api/pkg/config"
	"github.com/noah-isme/portal-sabido-api/pkg/events"
	"github.com/noah-isme/portal-sabido-api/pkg/logger"
)

// @title Portal Sabido API
// @version 1.0.0
// @description School portal for students and instructors: registration, announcements and rosters.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer stores.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close() //nolint:errcheck

	publisher, err := events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logr)
	if err != nil {
		logr.Warn("event publishing unavailable", zap.Error(err))
		publisher = events.Noop{}
	}
	defer publisher.Close() //nolint:errcheck

	services := bootstrap.NewServices(bootstrap.Deps{
		Config:    cfg,
		Stores:    stores,
		Redis:     redisClient,
		Publisher: publisher,
		Logger:    logr,
	})
	services.RepairQueue.Start(ctx)
	defer services.RepairQueue.Stop()

	checks := map[string]handler.ReadinessCheck{
		cfg.StoreDriver: stores.Ping,
		"redis":         func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}
	engine := router.New(services.Handlers(checks), router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        services.Metrics,
		Sessions:       services.Sessions,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
