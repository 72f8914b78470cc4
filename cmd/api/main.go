package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/veritas-lms/veritas-go-api/internal/config"
	"github.com/veritas-lms/veritas-go-api/internal/database"
	"github.com/veritas-lms/veritas-go-api/internal/handler"
	"github.com/veritas-lms/veritas-go-api/internal/middleware"
	"github.com/veritas-lms/veritas-go-api/internal/models"
	"github.com/veritas-lms/veritas-go-api/internal/repository"
	"github.com/veritas-lms/veritas-go-api/internal/router"
	"github.com/veritas-lms/veritas-go-api/internal/service"
	cloud "github.com/veritas-lms/veritas-go-api/pkg/cloudinary"
	"github.com/veritas-lms/veritas-go-api/pkg/embed"
	"github.com/veritas-lms/veritas-go-api/pkg/textextract"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Course{}, &models.Assignment{}, &models.Submission{}, &models.Notification{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, notifications stay node-local")
		} else {
			defer natsConn.Close()
		}
	}

	var uploader service.FileUploader
	if cfg.CloudinaryCloudName != "" {
		cloudService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudService
	}

	var embedder embed.Embedder
	if cfg.OpenAIAPIKey != "" {
		openaiEmbedder, err := embed.NewOpenAIEmbedder(embed.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.EmbeddingModel,
			Timeout: cfg.EmbeddingTimeout,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("failed to create embedding client: %v", err)
		}
		embedder = openaiEmbedder
	} else {
		logger.Warn().Msg("no openai api key configured, semantic scoring disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, "veritas", natsConn, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, uploader, logger)
	plagiarismService := service.NewPlagiarismService(
		submissionRepo,
		assignmentRepo,
		userRepo,
		notificationService,
		textextract.New(logger),
		embedder,
		uploader,
		redisClient,
		cfg.CheckLockTTL,
		service.PolicyConfig{
			Stage1Threshold:    cfg.Stage1Threshold,
			SemanticHigh:       cfg.SemanticHighThreshold,
			SemanticModerate:   cfg.SemanticModerate,
			StructuralModerate: cfg.StructuralModerate,
		},
		validate,
		logger,
	)

	plagiarismHandler := handler.NewPlagiarismHandler(plagiarismService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		PlagiarismHandler:   plagiarismHandler,
		SubmissionHandler:   submissionHandler,
		NotificationHandler: notificationHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	notificationService.Start(runCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
