package main

import (
	"alcyxob/tricoach/internal/api"
	"alcyxob/tricoach/internal/config"
	"alcyxob/tricoach/internal/metrics"
	"alcyxob/tricoach/internal/planner"
	"alcyxob/tricoach/internal/repository/mongo"
	"alcyxob/tricoach/internal/service"
	"alcyxob/tricoach/internal/storage"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// @title TriCoach API
// @version 1.0
// @description API for triathlon coaches: plan generation, adaptation triggers, change proposals and athlete feedback.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting tricoach server")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		logger.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("database connection established", zap.String("database", cfg.Database.Name))

	// --- Ensure Indexes ---
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if err := mongo.EnsureUserIndexes(ctx, appDB); err != nil {
			logger.Error("user index creation failed", zap.Error(err))
		}
		if err := mongo.EnsurePlanIndexes(ctx, appDB); err != nil {
			logger.Error("plan index creation failed", zap.Error(err))
		}
		if err := mongo.EnsureTriggerIndexes(ctx, appDB); err != nil {
			logger.Error("trigger index creation failed", zap.Error(err))
		}
		if err := mongo.EnsureProposalIndexes(ctx, appDB); err != nil {
			logger.Error("proposal index creation failed", zap.Error(err))
		}
		if err := mongo.EnsureAuditIndexes(ctx, appDB); err != nil {
			logger.Error("audit index creation failed", zap.Error(err))
		}
		if err := mongo.EnsureFeedbackIndexes(ctx, appDB); err != nil {
			logger.Error("feedback index creation failed", zap.Error(err))
		}
		logger.Info("index creation process completed")
	}()

	// --- Initialize Storage ---
	objectStore, err := storage.NewS3Storage(cfg.S3, logger)
	if err != nil {
		logger.Fatal("failed to initialize S3 storage", zap.Error(err))
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	planRepo := mongo.NewMongoPlanRepository(appDB)
	triggerRepo := mongo.NewMongoTriggerRepository(appDB)
	proposalRepo := mongo.NewMongoProposalRepository(appDB)
	auditRepo := mongo.NewMongoAuditRepository(appDB)
	feedbackRepo := mongo.NewMongoFeedbackRepository(appDB)

	// --- Proposal Engine ---
	policy := cfg.Planner.Policy
	deterministic := planner.NewDeterministicEngine(policy)
	var engine planner.ProposalEngine = deterministic
	if cfg.Planner.Engine == planner.EngineModel && cfg.OpenAI.APIKey != "" {
		modelEngine := planner.NewModelEngine(
			openai.NewClient(cfg.OpenAI.APIKey),
			cfg.OpenAI.Model,
			deterministic,
			logger,
		)
		modelEngine.OnFallback = m.EngineFallbacks.Inc
		engine = modelEngine
		logger.Info("using model proposal engine", zap.String("model", cfg.OpenAI.Model))
	} else {
		logger.Info("using deterministic proposal engine")
	}

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	coachService := service.NewCoachService(userRepo, feedbackRepo)
	athleteService := service.NewAthleteService(planRepo, feedbackRepo)
	plannerService := service.NewPlannerService(service.PlannerServiceDeps{
		PlanRepo:     planRepo,
		TriggerRepo:  triggerRepo,
		ProposalRepo: proposalRepo,
		AuditRepo:    auditRepo,
		FeedbackRepo: feedbackRepo,
		UserRepo:     userRepo,
		Engine:       engine,
		ObjectStore:  objectStore,
		Policy:       policy,
		WindowDays:   cfg.Planner.TriggerWindow,
		Metrics:      m,
		Logger:       logger,
	})

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	api.SetupRoutes(router, cfg.JWT.Secret, registry, authService, coachService, plannerService, athleteService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("server starting", zap.String("address", cfg.Server.Address))

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen and serve error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
