package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healthpulse/healthpulse-go/internal/api"
	"github.com/healthpulse/healthpulse-go/internal/cache"
	"github.com/healthpulse/healthpulse-go/internal/config"
	"github.com/healthpulse/healthpulse-go/internal/database"
	"github.com/healthpulse/healthpulse-go/internal/logging"
	"github.com/healthpulse/healthpulse-go/internal/regression"
	"github.com/healthpulse/healthpulse-go/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)

	// Initialize Redis
	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	// Wire the analysis pipeline
	analysisCache := cache.NewAnalysisCache(redis.Client, logger, cfg.Analysis.RetrainTTL())
	fitter := regression.NewLeastSquaresFitter()
	scorer := services.NewRuleScorer(logger)
	trends := services.NewTrendAnalyzer(cfg, analysisCache, fitter, logger)
	correlations := services.NewCorrelationAnalyzer(cfg, analysisCache, scorer, fitter, logger)
	analysisService := services.NewAnalysisService(cfg, scorer, trends, correlations, analysisCache, logger)

	// Setup Gin router
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	api.SetupRoutes(router, redis, analysisService)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
