package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acse-yz219/bananslides/composer"
	"github.com/acse-yz219/bananslides/config"
	"github.com/acse-yz219/bananslides/handler"
	"github.com/acse-yz219/bananslides/middleware"
	"github.com/acse-yz219/bananslides/pkg/logger"
	"github.com/acse-yz219/bananslides/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize services
	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	// Initialize material catalog with config
	service.InitMaterialCatalog(&cfg.Store)
	catalog := service.GetMaterialCatalog()

	docparseSvc := service.NewDocparseService(&cfg.Docparse, catalog, minioSvc)
	pointer := service.NewProjectPointerStore()
	engineSvc := service.NewEngineService(&cfg.Engine, pointer)
	templateSvc := service.NewTemplateService(minioSvc, cfg.Minio.PresetPrefix)
	uploader := service.NewUploader(minioSvc, catalog, cfg.Upload.AllowedExtensions)
	associator := service.NewCatalogAssociator(catalog)

	// Compose sessions and the submission pipeline
	sessions := composer.NewSessionManager(composer.SessionDeps{
		Gateway:           uploader,
		Trigger:           docparseSvc,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
	})
	docparseSvc.SetStatusHandler(sessions.PushStatus)
	orchestrator := composer.NewOrchestrator(engineSvc, associator, templateSvc, pointer)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	materialHandler := handler.NewMaterialHandler(minioSvc, docparseSvc, sessions)
	composeHandler := handler.NewComposeHandler(templateSvc, sessions, orchestrator)
	callbackHandler := handler.NewCallbackHandler(&cfg.Docparse, docparseSvc, sessions)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/docparse/callback", callbackHandler.HandleCallback)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/files/upload", materialHandler.Upload)
		protected.POST("/files/batch", materialHandler.UploadBatch)
		protected.GET("/files", materialHandler.List)
		protected.POST("/files/:id/parse", materialHandler.Parse)
		protected.PUT("/files/:id/associate", materialHandler.Associate)
		protected.DELETE("/files/:id", materialHandler.Delete)

		protected.POST("/compose/paste", composeHandler.Paste)
		protected.GET("/compose/materials", composeHandler.Staged)
		protected.DELETE("/compose/materials/:id", composeHandler.RemoveStaged)
		protected.POST("/compose/materials/select", composeHandler.AddSelection)
		protected.POST("/compose/template", composeHandler.SelectTemplate)
		protected.POST("/compose/template/file", composeHandler.SelectTemplateFile)
		protected.DELETE("/compose/template", composeHandler.ClearTemplate)
		protected.GET("/compose/notifications", composeHandler.Notifications)
		protected.POST("/compose/submit", composeHandler.Submit)

		protected.GET("/templates", composeHandler.ListTemplates)
		protected.POST("/templates", composeHandler.SaveTemplate)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
