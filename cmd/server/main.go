package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"category-import-backend/internal/app"
	"category-import-backend/internal/apperror"
	"category-import-backend/internal/config"
	handler "category-import-backend/internal/handlers"
	"category-import-backend/internal/logger"
	"category-import-backend/internal/metrics"
	"category-import-backend/internal/routes"
	"category-import-backend/internal/services/ingest"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.Initialize(cfg.Env)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		zap.L().Fatal("database setup failed", zap.Error(err))
	}

	application, err := app.New(ctx, cfg, db)
	if err != nil {
		zap.L().Fatal("application setup failed", zap.Error(err))
	}
	application.Events.Subscribe(metrics.NewImportMetrics(nil))

	var queue ingest.Queue
	if cfg.RedisURL != "" {
		rdb, err := ingest.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zap.L().Fatal("redis setup failed", zap.Error(err))
		}
		defer rdb.Close()
		queue = ingest.NewRedisQueue(rdb)
		application.UseRedis(rdb)
		zap.L().Info("Connected to Redis")
	} else {
		queue = ingest.NewMemoryQueue(100)
		zap.L().Warn("REDIS_URL not set, using in-process import queue")
	}

	workerDone := make(chan struct{})
	go func() {
		ingest.NewWorker(queue, application.Service).Start(ctx)
		close(workerDone)
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger(), apperror.ErrorMiddleware())
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	importHandler := handler.NewImportHandler(
		application.Service,
		application.Categories,
		queue,
		cfg.Import.MaxFileBytes,
	)
	routes.RegisterRoutes(r, importHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		zap.L().Info("Category import service is running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Shutdown error", zap.Error(err))
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		zap.L().Warn("import worker did not stop in time")
	}
	zap.L().Info("Server shutdown complete.")
}
