package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eranmadhuka/thinkflow/backend/internal/api"
	"github.com/eranmadhuka/thinkflow/backend/internal/content"
	"github.com/eranmadhuka/thinkflow/backend/internal/engagement"
	"github.com/eranmadhuka/thinkflow/backend/internal/feed"
	"github.com/eranmadhuka/thinkflow/backend/internal/identity"
	"github.com/eranmadhuka/thinkflow/backend/internal/metrics"
	"github.com/eranmadhuka/thinkflow/backend/internal/notify"
	"github.com/eranmadhuka/thinkflow/backend/internal/push"
	"github.com/eranmadhuka/thinkflow/backend/internal/social"
	"github.com/eranmadhuka/thinkflow/backend/internal/telemetry"
	"github.com/eranmadhuka/thinkflow/backend/pkg/config"
	"github.com/eranmadhuka/thinkflow/backend/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting thinkflow API server...",
		zap.String("env", cfg.Env),
		zap.String("store", cfg.StoreBackend),
		zap.String("graph", cfg.GraphBackend),
	)

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
	log.Info("Server exited")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.ServiceName, cfg.Env, cfg.OtelEndpoint, log)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	// Infrastructure
	docs, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeWithTimeout(log, "document store", docs.Close)

	graphStore, closeGraph, err := openGraph(ctx, cfg, docs, log)
	if err != nil {
		return err
	}
	defer closeWithTimeout(log, "graph store", closeGraph)

	locker, closeLocker, err := openLocker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	hub := push.NewHub(log, originChecker(cfg.AllowedOrigins))
	defer hub.Close()
	pusher, closePusher, err := openPusher(cfg, hub, log)
	if err != nil {
		return err
	}
	defer closePusher()

	// Services
	sink := notify.NewSink(docs, pusher, log)
	deps := api.Deps{
		Resolver:        identity.NewResolver(docs, locker, log),
		Profiles:        identity.NewProfiles(docs, log),
		Providers:       identity.NewUserInfoClient(cfg.UserInfoURLs),
		Tokens:          identity.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL),
		Social:          social.NewService(docs, graphStore, sink, log),
		Content:         content.NewService(docs, docs, docs, docs, sink, log),
		Likes:           engagement.NewService(docs, docs, docs, docs, locker, sink, log),
		Feed:            feed.NewAssembler(docs, graphStore, docs, log),
		Notifications:   sink,
		Live:            hub,
		Metrics:         metrics.NewRecorder(),
		Logger:          log,
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newHTTPHandler(router, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	return g.Wait()
}

func closeWithTimeout(log *zap.Logger, name string, closeFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		log.Warn("Failed to close "+name, zap.Error(err))
	}
}
