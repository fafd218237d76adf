package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/bizreview-backend/config"
	"github.com/ikkim/bizreview-backend/internal/app/controller"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/internal/app/service"
	"github.com/ikkim/bizreview-backend/internal/db"
	"github.com/ikkim/bizreview-backend/internal/middleware"
	"github.com/ikkim/bizreview-backend/internal/notify"
	"github.com/ikkim/bizreview-backend/internal/router"
	"github.com/ikkim/bizreview-backend/internal/scheduler"
	"github.com/ikkim/bizreview-backend/internal/storage"
	ws "github.com/ikkim/bizreview-backend/internal/websocket"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"github.com/ikkim/bizreview-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := cfg.Log.Level
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logFormat := cfg.Log.Format
	if logFormat == "" {
		logFormat = "json"
		if cfg.Server.Environment == "development" {
			logFormat = "console"
		}
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting BizReview Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations (also seeds default email templates)
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	database := db.GetDB()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Email queue
	var queue notify.Queue
	switch cfg.Notification.QueueBackend {
	case "redis":
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer redis.Close()
		queue = notify.NewRedisQueue(redis.GetClient(), cfg.Notification.QueueKey)
	default:
		queue = notify.NewMemoryQueue(cfg.Notification.QueueSize)
	}
	logger.Info("Notification queue configured", map[string]interface{}{
		"backend": cfg.Notification.QueueBackend,
	})

	// File storage
	var files storage.FileStorage
	if cfg.Storage.Driver == "s3" {
		files = storage.NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL)
	} else {
		files = storage.NewLocalStorage(cfg.Storage.LocalDir, cfg.Storage.LocalBaseURL)
	}

	// Email workers
	worker := notify.NewWorker(
		queue,
		repository.NewEmailTemplateRepository(database),
		repository.NewUserRepository(database),
		notify.NewMailer(cfg.Mail),
		notify.RetryPolicy{
			MaxRetries:     cfg.Notification.MaxRetries,
			InitialBackoff: cfg.Notification.InitialBackoff,
			MaxBackoff:     cfg.Notification.MaxBackoff,
		},
	)
	workers := worker.Start(ctx, cfg.Notification.Workers)

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Initialize services
	targets := service.DefaultTargetRegistry()
	hub.SetAuthorizer(func(userID uint, topic string) bool {
		ref, err := targets.ParseTopic(topic)
		if err != nil {
			return false
		}
		ok, err := targets.CanUserManage(database, ref, userID)
		if err != nil {
			logger.Error("Failed to authorize topic subscription", err, map[string]interface{}{
				"user_id": userID,
				"topic":   topic,
			})
			return false
		}
		return ok
	})

	notificationService := service.NewNotificationService(
		repository.NewNotificationRepository(database),
		hub,
		notify.NewQueueDispatcher(queue),
		cfg.Server.PublicURL,
	)
	reviewService := service.NewReviewService(database, targets, files, hub)
	moderationService := service.NewModerationService(database, targets, notificationService)
	replyService := service.NewReplyService(database, targets, notificationService)
	mediaService := service.NewMediaService(database, files, cfg.Storage.MaxFileSize)
	ratingService := service.NewRatingService(database, targets)
	companyService := service.NewCompanyService(database, files)

	// Rating reconcile scheduler
	reconcile := scheduler.NewRatingReconcileScheduler(cfg.Scheduler.RatingReconcileCron, ratingService)
	if err := reconcile.Start(); err != nil {
		logger.Fatal("Failed to start rating reconcile scheduler", err)
	}
	defer reconcile.Stop()

	// Initialize controllers
	reviewController := controller.NewReviewController(
		targets,
		reviewService,
		moderationService,
		replyService,
		mediaService,
		ratingService,
	)
	companyController := controller.NewCompanyController(companyService)
	notificationController := controller.NewNotificationController(notificationService, hub, cfg.CORS.AllowedOrigins)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		reviewController,
		companyController,
		notificationController,
		authMiddleware,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	workers.Wait()
	logger.Info("Server stopped successfully")
}
