package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healthpulse/healthpulse-go/internal/api/handlers"
	"github.com/healthpulse/healthpulse-go/internal/database"
	"github.com/healthpulse/healthpulse-go/internal/services"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Redis string `json:"redis"`
}

func SetupRoutes(router *gin.Engine, redis *database.RedisClient, analysisService *services.AnalysisService) {
	// Health check endpoint
	router.GET("/health", healthCheck(redis))

	analysisHandler := handlers.NewAnalysisHandler(analysisService)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		analysis := v1.Group("/analysis")
		{
			analysis.POST("", analysisHandler.RunAnalysis)
			analysis.DELETE("/cache", analysisHandler.ResetCaches)
		}
	}
}

func healthCheck(redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Redis: "ok",
			},
		}

		// Check Redis health
		if err := redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
