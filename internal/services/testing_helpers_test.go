package services

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/healthpulse/healthpulse-go/internal/cache"
	"github.com/healthpulse/healthpulse-go/internal/config"
	"github.com/healthpulse/healthpulse-go/internal/models"
	"github.com/healthpulse/healthpulse-go/internal/regression"
)

// testBase anchors generated readings to a fixed noon so calendar-day
// offsets are deterministic.
var testBase = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		LogLevel:    "error",
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
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestCache(t *testing.T) (*cache.AnalysisCache, func()) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	c := cache.NewAnalysisCache(client, newTestLogger(), 24*time.Hour)
	cleanup := func() {
		client.Close()
		s.Close()
	}
	return c, cleanup
}

// newTestPipeline wires a full analysis pipeline over a miniredis-backed
// cache.
func newTestPipeline(t *testing.T) (*AnalysisService, *TrendAnalyzer, *CorrelationAnalyzer, func()) {
	cfg := newTestConfig()
	logger := newTestLogger()
	analysisCache, cleanup := newTestCache(t)
	fitter := regression.NewLeastSquaresFitter()

	scorer := NewRuleScorer(logger)
	trends := NewTrendAnalyzer(cfg, analysisCache, fitter, logger)
	correlations := NewCorrelationAnalyzer(cfg, analysisCache, scorer, fitter, logger)
	svc := NewAnalysisService(cfg, scorer, trends, correlations, analysisCache, logger)
	return svc, trends, correlations, cleanup
}

// Series generators. value(day) produces the reading for each day offset.

func dailyBP(days int, sys, dia func(day int) int) []models.BloodPressureReading {
	out := make([]models.BloodPressureReading, days)
	for d := 0; d < days; d++ {
		out[d] = models.BloodPressureReading{
			Systolic:  sys(d),
			Diastolic: dia(d),
			Timestamp: testBase.AddDate(0, 0, d),
		}
	}
	return out
}

func dailyPulse(days int, value func(day int) int) []models.PulseReading {
	out := make([]models.PulseReading, days)
	for d := 0; d < days; d++ {
		out[d] = models.PulseReading{Pulse: value(d), Timestamp: testBase.AddDate(0, 0, d)}
	}
	return out
}

func dailyGlucose(days int, value func(day int) float64) []models.GlucoseReading {
	out := make([]models.GlucoseReading, days)
	for d := 0; d < days; d++ {
		out[d] = models.GlucoseReading{Glucose: value(d), Timestamp: testBase.AddDate(0, 0, d)}
	}
	return out
}

func dailySleep(days int, value func(day int) float64) []models.SleepReading {
	out := make([]models.SleepReading, days)
	for d := 0; d < days; d++ {
		out[d] = models.SleepReading{Hours: value(d), Timestamp: testBase.AddDate(0, 0, d)}
	}
	return out
}

func dailyWeight(days int, value func(day int) float64) []models.WeightReading {
	out := make([]models.WeightReading, days)
	for d := 0; d < days; d++ {
		out[d] = models.WeightReading{Weight: value(d), Timestamp: testBase.AddDate(0, 0, d)}
	}
	return out
}

func singleHeight(cm float64) []models.HeightReading {
	return []models.HeightReading{{Height: cm, Timestamp: testBase}}
}

func constInt(v int) func(int) int           { return func(int) int { return v } }
func constFloat(v float64) func(int) float64 { return func(int) float64 { return v } }

// healthyReadings is the canonical in-range snapshot over the given span.
func healthyReadings(days int) models.ReadingSet {
	return models.ReadingSet{
		BloodPressure: dailyBP(days, constInt(118), constInt(75)),
		Pulse:         dailyPulse(days, constInt(70)),
		Glucose:       dailyGlucose(days, constFloat(95)),
		Sleep:         dailySleep(days, constFloat(7.5)),
		Weight:        dailyWeight(days, constFloat(70)),
		Height:        singleHeight(175),
	}
}

// unhealthyReadings is the canonical out-of-range snapshot.
func unhealthyReadings(days int) models.ReadingSet {
	return models.ReadingSet{
		BloodPressure: dailyBP(days, constInt(160), constInt(100)),
		Pulse:         dailyPulse(days, constInt(120)),
		Glucose:       dailyGlucose(days, constFloat(200)),
		Sleep:         dailySleep(days, constFloat(3.0)),
		Weight:        dailyWeight(days, constFloat(130)),
		Height:        singleHeight(165),
	}
}

// stubFitter returns a model that always predicts a fixed value, or an
// error when configured to fail.
type stubFitter struct {
	prediction float64
	err        error
}

type stubModel struct {
	prediction float64
}

func (m stubModel) Predict([]float64) float64 { return m.prediction }

func (f stubFitter) Fit([][]float64, []float64) (regression.Model, error) {
	if f.err != nil {
		return nil, f.err
	}
	return stubModel{prediction: f.prediction}, nil
}
