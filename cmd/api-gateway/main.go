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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/isshoni-club/club-api/api/swagger"
	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/handler"
	"github.com/isshoni-club/club-api/internal/identity"
	"github.com/isshoni-club/club-api/internal/metrics"
	"github.com/isshoni-club/club-api/internal/middleware"
	"github.com/isshoni-club/club-api/internal/store"
	"github.com/isshoni-club/club-api/internal/sync"
	"github.com/isshoni-club/club-api/pkg/cache"
	"github.com/isshoni-club/club-api/pkg/config"
	"github.com/isshoni-club/club-api/pkg/database"
	"github.com/isshoni-club/club-api/pkg/jobs"
	"github.com/isshoni-club/club-api/pkg/logger"
	corsmiddleware "github.com/isshoni-club/club-api/pkg/middleware/cors"
	reqidmiddleware "github.com/isshoni-club/club-api/pkg/middleware/requestid"
	"github.com/isshoni-club/club-api/pkg/storage"
)

// @title Isshoni Club API
// @version 0.1.0
// @description Backend for the Isshoni Nihongo Club mobile app
// @BasePath /api/v1
// @schemes http

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

	metricsSvc := metrics.NewService()

	gw, err := newGateway(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init gateway", "driver", cfg.Gateway.Driver, "error", err)
	}
	gw = gateway.NewInstrumented(gw, metricsSvc)

	provider := identity.NewLocalProvider(gw, cfg.JWT, logr)

	stores := sync.Stores{
		Resources:   store.NewResources(gw, nil, logr),
		Assignments: store.NewAssignments(gw, nil, logr),
		Events:      store.NewEvents(gw, nil, logr),
		Leaderboard: store.NewLeaderboard(gw, logr),
		Chat:        store.NewChat(gw, nil, logr),
		Club:        store.NewClub(gw, nil, logr),
	}
	auth := store.NewAuth(provider, nil, logr)

	queue := jobs.NewQueue("sync-refresh", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	queue.Start(ctx)

	orchestrator := sync.NewOrchestrator(stores, gw, cfg.Sync, queue, logr, metricsSvc.Registry())
	if err := orchestrator.StartChatSubscription(ctx); err != nil {
		logr.Sugar().Warnw("chat subscription unavailable", "error", err)
	}

	handlers := handler.Handlers{
		Auth:        handler.NewAuthHandler(auth),
		Resources:   handler.NewResourceHandler(stores.Resources),
		Assignments: newAssignmentHandler(cfg, stores.Assignments, logr),
		Events:      handler.NewEventHandler(stores.Events),
		Leaderboard: handler.NewLeaderboardHandler(stores.Leaderboard),
		Chat:        handler.NewChatHandler(stores.Chat, gw),
		Club:        handler.NewClubHandler(stores.Club),
		Dashboard:   handler.NewDashboardHandler(orchestrator, stores),
		Metrics:     handler.NewMetricsHandler(metricsSvc),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", handlers.Metrics.Health)

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, provider)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "gateway", cfg.Gateway.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("http shutdown", "error", err)
	}

	orchestrator.Shutdown()
	if err := gw.Close(); err != nil {
		logr.Sugar().Warnw("gateway close", "error", err)
	}
}

// newGateway builds the document store selected by GATEWAY_DRIVER.
func newGateway(ctx context.Context, cfg *config.Config, logr *zap.Logger) (gateway.Store, error) {
	switch cfg.Gateway.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		gw := gateway.NewPostgres(db, database.DSN(cfg.Database), logr)
		gw.SubscribeBuffer = cfg.Chat.SubscribeBuffer
		if err := gw.Migrate(ctx); err != nil {
			return nil, err
		}
		return gw, nil
	case config.DriverRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		gw := gateway.NewRedis(client, logr)
		gw.SubscribeBuffer = cfg.Chat.SubscribeBuffer
		return gw, nil
	case config.DriverMemory:
		gw := gateway.NewMemory()
		gw.SubscribeBuffer = cfg.Chat.SubscribeBuffer
		return gw, nil
	default:
		return nil, fmt.Errorf("unknown gateway driver %q", cfg.Gateway.Driver)
	}
}

// newAssignmentHandler wires optional file upload support.
func newAssignmentHandler(cfg *config.Config, assignments *store.Assignments, logr *zap.Logger) *handler.AssignmentHandler {
	if !cfg.Uploads.Enabled {
		return handler.NewAssignmentHandler(assignments, nil, nil, 0)
	}
	files, err := storage.NewFileStore(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Warnw("file storage unavailable, uploads disabled", "dir", cfg.Uploads.StorageDir, "error", err)
		return handler.NewAssignmentHandler(assignments, nil, nil, 0)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	return handler.NewAssignmentHandler(assignments, files, signer, cfg.Uploads.MaxFileSizeBytes)
}
