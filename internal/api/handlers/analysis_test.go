package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthpulse/healthpulse-go/internal/cache"
	"github.com/healthpulse/healthpulse-go/internal/config"
	"github.com/healthpulse/healthpulse-go/internal/models"
	"github.com/healthpulse/healthpulse-go/internal/regression"
	"github.com/healthpulse/healthpulse-go/internal/services"
)

func setupAnalysisHandler(t *testing.T) (*AnalysisHandler, func()) {
	gin.SetMode(gin.TestMode)

	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})

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

	analysisCache := cache.NewAnalysisCache(client, logger, 24*time.Hour)
	fitter := regression.NewLeastSquaresFitter()
	scorer := services.NewRuleScorer(logger)
	trends := services.NewTrendAnalyzer(cfg, analysisCache, fitter, logger)
	correlations := services.NewCorrelationAnalyzer(cfg, analysisCache, scorer, fitter, logger)
	svc := services.NewAnalysisService(cfg, scorer, trends, correlations, analysisCache, logger)

	cleanup := func() {
		client.Close()
		s.Close()
	}
	return NewAnalysisHandler(svc), cleanup
}

func performRequest(handler gin.HandlerFunc, method, path string, body []byte) *httptest.ResponseRecorder {
	router := gin.New()
	router.Handle(method, path, handler)

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRunAnalysis_InvalidJSON(t *testing.T) {
	handler, cleanup := setupAnalysisHandler(t)
	defer cleanup()

	w := performRequest(handler.RunAnalysis, http.MethodPost, "/api/v1/analysis", []byte("{not json"))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "invalid request body")
}

func TestRunAnalysis_EmptyReadings(t *testing.T) {
	handler, cleanup := setupAnalysisHandler(t)
	defer cleanup()

	body, err := json.Marshal(AnalysisRequest{})
	require.NoError(t, err)
	w := performRequest(handler.RunAnalysis, http.MethodPost, "/api/v1/analysis", body)

	assert.Equal(t, http.StatusOK, w.Code)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 50, result.Score)
	assert.Equal(t, models.StatusAtRisk, result.Status)
	require.NotNil(t, result.DataInsufficiencyMessage)
	assert.Equal(t, "Add health readings to see your wellness score.", *result.DataInsufficiencyMessage)
}

func TestRunAnalysis_WithReadings(t *testing.T) {
	handler, cleanup := setupAnalysisHandler(t)
	defer cleanup()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	readings := models.ReadingSet{}
	for d := 0; d < 21; d++ {
		readings.Glucose = append(readings.Glucose, models.GlucoseReading{
			Glucose:   95,
			Timestamp: base.AddDate(0, 0, d),
		})
	}

	body, err := json.Marshal(AnalysisRequest{Readings: readings})
	require.NoError(t, err)
	w := performRequest(handler.RunAnalysis, http.MethodPost, "/api/v1/analysis", body)

	assert.Equal(t, http.StatusOK, w.Code)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, models.StatusHealthy, result.Status)
	assert.Contains(t, result.MetricAnalyses, models.MetricGlucose)
	assert.Nil(t, result.DataInsufficiencyMessage)
}

func TestResetCaches(t *testing.T) {
	handler, cleanup := setupAnalysisHandler(t)
	defer cleanup()

	w := performRequest(handler.ResetCaches, http.MethodDelete, "/api/v1/analysis/cache", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "analysis caches cleared", resp["message"])
}
