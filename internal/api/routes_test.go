package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthpulse/healthpulse-go/internal/cache"
	"github.com/healthpulse/healthpulse-go/internal/config"
	"github.com/healthpulse/healthpulse-go/internal/database"
	"github.com/healthpulse/healthpulse-go/internal/regression"
	"github.com/healthpulse/healthpulse-go/internal/services"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *miniredis.Miniredis, func()) {
	gin.SetMode(gin.TestMode)

	s, err := miniredis.Run()
	require.NoError(t, err)

	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)
	redisClient, err := database.NewRedisConnection(config.RedisConfig{
		Host: s.Host(),
		Port: port,
	})
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := &config.Config{
		Environment: "test",
		Analysis: config.AnalysisConfig{
			TrendMinPoints:        5,
			TrendMinDays:          14,
			RetrainInterval:       "24h",
			CorrelationElevated:   0.6,
			CorrelationHigh:       0.8,
			MinFeatureRows:        14,
			MinPairRows:           7,
			RuleBlendWeight:       0.6,
			ModelBlendWeight:      0.4,
			WorseningTrendPenalty: 3,
			ImprovingTrendBonus:   2,
		},
	}

	analysisCache := cache.NewAnalysisCache(redisClient.Client, logger, cfg.Analysis.RetrainTTL())
	fitter := regression.NewLeastSquaresFitter()
	scorer := services.NewRuleScorer(logger)
	trends := services.NewTrendAnalyzer(cfg, analysisCache, fitter, logger)
	correlations := services.NewCorrelationAnalyzer(cfg, analysisCache, scorer, fitter, logger)
	svc := services.NewAnalysisService(cfg, scorer, trends, correlations, analysisCache, logger)

	router := gin.New()
	SetupRoutes(router, redisClient, svc)

	cleanup := func() {
		redisClient.Close()
		s.Close()
	}
	return router, s, cleanup
}

func TestHealthCheck_OK(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Services.Redis)
	assert.WithinDuration(t, time.Now(), resp.Timestamp, time.Minute)
}

func TestHealthCheck_Degraded(t *testing.T) {
	router, s, cleanup := setupTestRouter(t)
	defer cleanup()

	s.SetError("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "error", resp.Services.Redis)
}

func TestAnalysisRoutesAreRegistered(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", nil)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	// Empty body fails binding, proving the route resolves.
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/analysis/cache", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
