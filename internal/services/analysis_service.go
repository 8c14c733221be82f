package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/healthpulse/healthpulse-go/internal/cache"
	"github.com/healthpulse/healthpulse-go/internal/config"
	"github.com/healthpulse/healthpulse-go/internal/models"
	"github.com/healthpulse/healthpulse-go/internal/stats"
)

// AnalysisService sequences rule scoring, trend analysis and cross-metric
// correlation over one snapshot of readings, blends the scores and
// assembles the final result. Analyze never fails: every degradation is
// recorded in the result's log instead.
type AnalysisService struct {
	cfg          *config.Config
	scorer       *RuleScorer
	trends       *TrendAnalyzer
	correlations *CorrelationAnalyzer
	cache        *cache.AnalysisCache
	logger       *logrus.Logger
}

// NewAnalysisService wires the orchestrator from its components.
func NewAnalysisService(cfg *config.Config, scorer *RuleScorer, trends *TrendAnalyzer, correlations *CorrelationAnalyzer, analysisCache *cache.AnalysisCache, logger *logrus.Logger) *AnalysisService {
	return &AnalysisService{
		cfg:          cfg,
		scorer:       scorer,
		trends:       trends,
		correlations: correlations,
		cache:        analysisCache,
		logger:       logger,
	}
}

// Analyze produces one complete AnalysisResult from a readings snapshot.
func (s *AnalysisService) Analyze(ctx context.Context, readings models.ReadingSet) *models.AnalysisResult {
	runID := uuid.New().String()
	started := time.Now()

	log := []string{
		"[Analysis] ========== Starting Health Analysis ==========",
		fmt.Sprintf("[Analysis] Run: %s", runID),
		fmt.Sprintf("[Analysis] Timestamp: %s", started.Format(time.RFC3339)),
	}

	log = append(log, fmt.Sprintf("[Analysis] Input counts: BP=%d, Weight=%d, Height=%d, Pulse=%d, Sleep=%d, Glucose=%d",
		len(readings.BloodPressure), len(readings.Weight), len(readings.Height),
		len(readings.Pulse), len(readings.Sleep), len(readings.Glucose)))
	totalReadings := readings.TotalReadings()
	log = append(log, fmt.Sprintf("[Analysis] Total readings (excl. height): %d", totalReadings))

	// 1. Always run rule-based scoring
	log = append(log, "[Analysis] --- Phase 1: Rule-Based Scoring ---")
	ruleResult := s.scorer.ScoreReadings(readings)
	log = append(log, ruleResult.Log...)

	// 2. Trend analysis for metrics with enough data
	log = append(log, "[Analysis] --- Phase 2: Trend Analysis ---")
	trends, trendLog := s.trends.AnalyzeTrends(ctx, readings)
	log = append(log, trendLog...)

	projections := make(map[string]models.HealthProjection)
	for key, trendResult := range trends {
		if trendResult.Projection != nil {
			projections[key] = *trendResult.Projection
		}
	}
	log = append(log, fmt.Sprintf("[Analysis] Extracted %d metric projections from trends", len(projections)))

	// 3. Cross-metric correlation with projections
	log = append(log, "[Analysis] --- Phase 3: Cross-Metric Correlation ---")
	correlation := s.correlations.AnalyzeCorrelations(ctx, readings, projections)
	log = append(log, correlation.Log...)

	// 4. Per-metric analyses from scorer + trend outputs
	log = append(log, "[Analysis] --- Phase 4: Building Metric Analyses ---")
	metricAnalyses := make(map[string]models.MetricAnalysis)
	for key, risk := range ruleResult.Risks {
		analysis := models.MetricAnalysis{
			Risk:      risk,
			RecentAvg: recentAverage(key, readings),
			Message:   ruleResult.Messages[key],
		}
		trendStr := "n/a"
		if trendResult, ok := trends[key]; ok {
			direction := trendResult.Direction
			analysis.Trend = &direction
			trendStr = string(direction)
		}
		avgStr := "n/a"
		if analysis.RecentAvg != nil {
			avgStr = fmt.Sprintf("%.1f", *analysis.RecentAvg)
		}
		metricAnalyses[key] = analysis
		log = append(log, fmt.Sprintf("[Analysis] Metric '%s': risk=%s, trend=%s, recentAvg=%s", key, risk, trendStr, avgStr))
	}

	// 5. Blend rule and model scores, then apply trend adjustments
	log = append(log, "[Analysis] --- Phase 5: Score Blending ---")
	finalScore := ruleResult.Score
	if correlation.ModelScore != nil {
		blended := s.cfg.Analysis.RuleBlendWeight*float64(ruleResult.Score) + s.cfg.Analysis.ModelBlendWeight*float64(*correlation.ModelScore)
		finalScore = int(math.Round(blended))
		log = append(log, fmt.Sprintf("[Analysis] Blended score: %.1f * rule(%d) + %.1f * model(%d) = %d",
			s.cfg.Analysis.RuleBlendWeight, ruleResult.Score, s.cfg.Analysis.ModelBlendWeight, *correlation.ModelScore, finalScore))
	} else {
		log = append(log, fmt.Sprintf("[Analysis] Base rule score: %d (no model score available)", finalScore))
	}

	worsening, improving := 0, 0
	for _, trendResult := range trends {
		switch trendResult.Direction {
		case models.TrendWorsening:
			worsening++
		case models.TrendImproving:
			improving++
		}
	}
	if worsening > 0 {
		penalty := worsening * s.cfg.Analysis.WorseningTrendPenalty
		finalScore -= penalty
		log = append(log, fmt.Sprintf("[Analysis] Worsening trends: %d, penalty: -%d", worsening, penalty))
	}
	if improving > 0 {
		bonus := improving * s.cfg.Analysis.ImprovingTrendBonus
		finalScore += bonus
		log = append(log, fmt.Sprintf("[Analysis] Improving trends: %d, bonus: +%d", improving, bonus))
	}
	finalScore = stats.ClampScore(finalScore)
	log = append(log, fmt.Sprintf("[Analysis] Adjusted final score: %d", finalScore))

	// 6. Status from fixed breakpoints
	status := classifyStatus(finalScore)
	log = append(log, fmt.Sprintf("[Analysis] Status: %s", status))

	// 7. Data-insufficiency messaging
	var insufficiency *string
	switch {
	case totalReadings == 0:
		msg := "Add health readings to see your wellness score."
		insufficiency = &msg
		log = append(log, "[Analysis] Data insufficiency: no readings at all")
	case len(trends) == 0:
		msg := "Keep tracking for 14+ days to see health trends."
		insufficiency = &msg
		log = append(log, fmt.Sprintf("[Analysis] Data insufficiency: not enough data for trend analysis (need %d+ days)", s.cfg.Analysis.TrendMinDays))
	default:
		log = append(log, fmt.Sprintf("[Analysis] Data sufficiency: OK (%d trend metrics available)", len(trends)))
	}

	log = append(log, "[Analysis] ========== Analysis Complete ==========")
	log = append(log, fmt.Sprintf("[Analysis] Final: score=%d, status=%s, metrics=%d, trends=%d, alerts=%d, projections=%d",
		finalScore, status, len(metricAnalyses), len(trends), len(correlation.Alerts), len(projections)))

	s.logger.WithFields(logrus.Fields{
		"run_id":      runID,
		"score":       finalScore,
		"status":      status,
		"metrics":     len(metricAnalyses),
		"alerts":      len(correlation.Alerts),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("Health analysis completed")

	return &models.AnalysisResult{
		Score:                    finalScore,
		Status:                   status,
		MetricAnalyses:           metricAnalyses,
		CorrelationAlerts:        correlation.Alerts,
		DataInsufficiencyMessage: insufficiency,
		Timestamp:                started,
		Projections:              projections,
		ProjectedScores:          correlation.ProjectedScores,
		Log:                      log,
	}
}

// ResetCaches wipes all trend cache entries, the correlation alert cache
// and any stored model artifacts in one operation.
func (s *AnalysisService) ResetCaches(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to reset analysis caches: %w", err)
	}
	s.logger.Info("All analysis caches and model artifacts cleared")
	return nil
}

func classifyStatus(score int) string {
	switch {
	case score >= 80:
		return models.StatusHealthy
	case score >= 60:
		return models.StatusNeedsAttention
	}
	return models.StatusAtRisk
}

// recentAverage is the mean over a metric's trailing readings, shown
// alongside its risk classification.
func recentAverage(key string, readings models.ReadingSet) *float64 {
	switch key {
	case models.MetricBP:
		if len(readings.BloodPressure) == 0 {
			return nil
		}
		recent := lastN(len(readings.BloodPressure), trailingWindow)
		sum := 0.0
		for _, r := range readings.BloodPressure[recent:] {
			sum += float64(r.Systolic)
		}
		avg := sum / float64(len(readings.BloodPressure)-recent)
		return &avg
	case models.MetricPulse:
		if len(readings.Pulse) == 0 {
			return nil
		}
		recent := lastN(len(readings.Pulse), trailingWindow)
		sum := 0.0
		for _, r := range readings.Pulse[recent:] {
			sum += float64(r.Pulse)
		}
		avg := sum / float64(len(readings.Pulse)-recent)
		return &avg
	case models.MetricGlucose:
		if len(readings.Glucose) == 0 {
			return nil
		}
		recent := lastN(len(readings.Glucose), trailingWindow)
		sum := 0.0
		for _, r := range readings.Glucose[recent:] {
			sum += r.Glucose
		}
		avg := sum / float64(len(readings.Glucose)-recent)
		return &avg
	case models.MetricSleep:
		if len(readings.Sleep) == 0 {
			return nil
		}
		recent := lastN(len(readings.Sleep), trailingWindow)
		sum := 0.0
		for _, r := range readings.Sleep[recent:] {
			sum += r.Hours
		}
		avg := sum / float64(len(readings.Sleep)-recent)
		return &avg
	case models.MetricBMI:
		if len(readings.Weight) == 0 || len(readings.Height) == 0 {
			return nil
		}
		recent := lastN(len(readings.Weight), trailingWindow)
		sum := 0.0
		for _, r := range readings.Weight[recent:] {
			sum += r.Weight
		}
		w := sum / float64(len(readings.Weight)-recent)
		h := readings.Height[len(readings.Height)-1].Height
		if h <= 0 {
			return nil
		}
		bmi := w / ((h / 100) * (h / 100))
		return &bmi
	}
	return nil
}

// lastN returns the start index of the trailing window of size n.
func lastN(length, n int) int {
	if length <= n {
		return 0
	}
	return length - n
}
