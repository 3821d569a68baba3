package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"royalty-split-manager/internal/config"
	"royalty-split-manager/internal/contract"
	"royalty-split-manager/internal/db"
	"royalty-split-manager/internal/esign"
	"royalty-split-manager/internal/middleware"
	"royalty-split-manager/internal/render"
	"royalty-split-manager/internal/split"
	"royalty-split-manager/internal/worker"
	"royalty-split-manager/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Load configuration
	config.LoadConfig()

	// Connect to database
	db.ConnectDb()
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	// Cache and background workers
	cache := redis.NewCache()
	pool := worker.NewWorkerPool(4)
	defer pool.Shutdown()

	// External collaborators
	esignClient := esign.NewSignWellClient(
		config.AppConfig.SignWellAPIBase,
		config.AppConfig.SignWellAPIKey,
	)
	renderClient := render.NewRenderClient(config.AppConfig.RenderServerAddress)

	// Initialize repositories
	splitRepo := split.NewRepository(db.AppDb)
	contractRepo := contract.NewRepository(db.AppDb)
	// Initialize services
	splitService := split.NewService(splitRepo, cache)
	assembler := contract.NewAssembler(contractRepo, esignClient, renderClient)
	contractService := contract.NewService(
		contractRepo,
		esignClient,
		assembler,
		pool,
		config.AppConfig.SignWellWebhookSecret,
	)
	// Initialize handlers
	splitHandler := split.NewHandler(splitService)
	contractHandler := contract.NewHandler(contractService)

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	admin := middleware.AdminAuthMiddleware()

	// Split ledger routes
	router.POST("/works/:id/publishing-entities", admin, splitHandler.SetPublishingEntities)
	router.POST("/works/:id/label-share", admin, splitHandler.SetLabelShare)
	router.POST("/works/:id/collaborator-shares", admin, splitHandler.SetCollaboratorShares)
	router.POST("/works/:id/lock", admin, splitHandler.Lock)
	router.GET("/works/:id/splits", admin, splitHandler.ShowSplits)

	// Contract routes
	router.GET("/works/:id/contracts", admin, contractHandler.ListWorkContracts)
	router.POST("/contracts/:id/send", admin, contractHandler.Send)
	router.GET("/contracts/:id/status", admin, contractHandler.ShowStatus)
	router.GET("/contracts/:id/download", admin, contractHandler.Download)

	// Provider webhook: HMAC-authenticated, no session auth
	router.POST("/esignature/webhook", contractHandler.Webhook)

	// internal use routes
	router.POST(
		"/internal/works/:id/contracts/generate",
		middleware.InternalAuthMiddleware(config.AppConfig.InternalSecret),
		contractHandler.GenerateForWork,
	)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Info().Msgf("Server listening on port %s", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	<-ctx.Done()
	log.Info().Msg("Server shutdown complete")
}
