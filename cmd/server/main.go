package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"goodlist/internal/config"
	"goodlist/internal/db"
	"goodlist/internal/logger"
	"goodlist/internal/router"
	"goodlist/internal/services"
	"goodlist/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		logger.L().Fatal("Failed to initialize database", zap.Error(err))
	}

	cache, err := utils.NewCache(ctx, cfg.RedisURL)
	if err != nil {
		logger.L().Fatal("Failed to initialize cache", zap.Error(err))
	}

	fetcher := services.NewOGPFetcher(
		&http.Client{Timeout: cfg.ScraperTimeout},
		cfg.ScraperAllowedHosts,
		cfg.ScraperTimeout,
		cfg.ScraperAttempts,
	)
	contents := services.NewContentService(conn, fetcher)
	feed := services.NewFeedService(conn, cache, cfg.FeedSize)
	svc := router.Services{
		Identity:   services.NewIdentityService(conn, feed),
		Tokens:     services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Lists:      services.NewListService(conn, feed),
		Engagement: services.NewEngagementService(conn, contents),
		Contents:   contents,
		Posts:      services.NewPostService(conn, contents, feed),
		Feed:       feed,
	}

	r, err := router.New(cfg, svc)
	if err != nil {
		logger.L().Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Goodlist server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
