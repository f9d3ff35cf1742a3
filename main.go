package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/twintipsolutions/cough-backend/internal/audit"
	"github.com/twintipsolutions/cough-backend/internal/auth"
	"github.com/twintipsolutions/cough-backend/internal/azure"
	"github.com/twintipsolutions/cough-backend/internal/config"
	"github.com/twintipsolutions/cough-backend/internal/handler"
	"github.com/twintipsolutions/cough-backend/internal/middleware"
	"github.com/twintipsolutions/cough-backend/internal/observability"
	"github.com/twintipsolutions/cough-backend/internal/repository"
	"github.com/twintipsolutions/cough-backend/internal/security"
	"github.com/twintipsolutions/cough-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	var logger *zap.Logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize database connection pool with pgx
	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	// Initialize Azure OpenAI clients, one per model tier
	primaryClient, err := azure.NewOpenAIClient(
		cfg.Azure.OpenAI.Endpoint,
		cfg.Azure.OpenAI.APIKey,
		cfg.Azure.OpenAI.Deployment,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize primary Azure OpenAI client", zap.Error(err))
	}

	fallbackClient, err := azure.NewOpenAIClient(
		cfg.Azure.OpenAI.FallbackEndpoint,
		cfg.Azure.OpenAI.FallbackAPIKey,
		cfg.Azure.OpenAI.FallbackDeployment,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize fallback Azure OpenAI client", zap.Error(err))
	}

	// Audio retention archive is optional; the pipeline runs without it
	var archive azure.BlobStorage
	if cfg.Azure.Storage.RetainAudio {
		blobClient, err := azure.NewBlobStorageClient(
			cfg.Azure.Storage.AccountName,
			cfg.Azure.Storage.AccountKey,
			cfg.Azure.Storage.AudioContainer,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Azure Blob Storage client", zap.Error(err))
		}
		archive = blobClient
	}

	// Metadata encryption is active only when a key is configured
	encryptor, err := security.NewEncryptorFromBase64(cfg.Security.MetadataKey)
	if err != nil {
		logger.Fatal("Failed to initialize metadata encryptor", zap.Error(err))
	}
	if encryptor.Enabled() {
		logger.Info("Metadata encryption enabled")
	}

	verifier, err := auth.NewTokenVerifier(cfg.Auth.PublicKeyPath, logger)
	if err != nil {
		logger.Fatal("Failed to initialize token verifier", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	auditLogger := audit.NewLogger(pool, logger)

	// Initialize repository and services
	analysisRepo := repository.NewAnalysisRepository(pool, encryptor, logger)

	invoker := service.NewModelInvoker(
		primaryClient,
		fallbackClient,
		cfg.Azure.OpenAI.RequestTimeout,
		metrics,
		logger,
	)
	normalizer := service.NewNormalizer(metrics, logger)

	analysisService := service.NewAnalysisService(
		analysisRepo,
		invoker,
		normalizer,
		archive,
		auditLogger,
		metrics,
		service.AnalysisOptions{
			ShortClipFloorSeconds: cfg.Analysis.ShortClipFloorSeconds,
			HistoryDefaultLimit:   cfg.Analysis.HistoryDefaultLimit,
			HistoryMaxLimit:       cfg.Analysis.HistoryMaxLimit,
			RetainAudio:           cfg.Azure.Storage.RetainAudio,
		},
		logger,
	)

	analysisHandler := handler.NewAnalysisHandler(analysisService, logger)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Recovery middleware must be first
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Configure appropriately for production
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(middleware.MetricsMiddleware(metrics))

	// Unauthenticated operational endpoints
	r.GET("/health", healthCheck(pool, logger))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Analysis API requires a verified caller identity
	api := r.Group("/api/v1")
	api.Use(auth.Middleware(verifier, logger))
	api.POST("/analysis", analysisHandler.PostAnalysis)
	api.POST("/history", analysisHandler.PostHistory)
	api.DELETE("/analysis/:id", analysisHandler.DeleteAnalysis)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	pool.Close()

	logger.Info("Server exited")
}

// healthCheck reports liveness plus database reachability.
func healthCheck(pool *pgxpool.Pool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			logger.Error("health check failed: database unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "connected",
			"service":  "cough-backend",
			"version":  "1.0.0",
		})
	}
}
