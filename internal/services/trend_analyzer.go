package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"

	"github.com/healthpulse/healthpulse-go/internal/cache"
	"github.com/healthpulse/healthpulse-go/internal/config"
	"github.com/healthpulse/healthpulse-go/internal/models"
	"github.com/healthpulse/healthpulse-go/internal/regression"
	"github.com/healthpulse/healthpulse-go/internal/stats"
)

// normalizedSlopeBand is the +-band of slope/mean inside which a metric
// counts as stable.
const normalizedSlopeBand = 0.005

// trailingWindow is the sample window for the "current average".
const trailingWindow = 7

// timedValue is one reading value with its timestamp.
type timedValue struct {
	value float64
	ts    time.Time
}

// TrendAnalyzer fits each metric's readings against day offsets and
// classifies the slope. Fitted results are memoized per metric with a
// retrain TTL; each metric's read-retrain-write cycle holds a key-level
// lock.
type TrendAnalyzer struct {
	cfg    *config.Config
	cache  *cache.AnalysisCache
	fitter regression.Fitter
	logger *logrus.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTrendAnalyzer creates a trend analyzer backed by the given cache and
// fitter.
func NewTrendAnalyzer(cfg *config.Config, analysisCache *cache.AnalysisCache, fitter regression.Fitter, logger *logrus.Logger) *TrendAnalyzer {
	return &TrendAnalyzer{
		cfg:    cfg,
		cache:  analysisCache,
		fitter: fitter,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// AnalyzeTrends runs the per-metric trend fit for every metric with
// readings. Metrics failing the input gate are absent from the result map.
func (t *TrendAnalyzer) AnalyzeTrends(ctx context.Context, readings models.ReadingSet) (map[string]models.TrendResult, []string) {
	results := make(map[string]models.TrendResult)
	log := []string{"[Trend] Starting trend analysis..."}

	series := map[string]struct {
		cacheName string
		data      []timedValue
	}{
		models.MetricBP:      {"bp_systolic", bpSystolicSeries(readings.BloodPressure)},
		models.MetricPulse:   {"pulse", pulseSeries(readings.Pulse)},
		models.MetricGlucose: {"glucose", glucoseSeries(readings.Glucose)},
		models.MetricSleep:   {"sleep", sleepSeries(readings.Sleep)},
		models.MetricWeight:  {"weight", weightSeries(readings.Weight)},
	}

	// Deterministic metric order keeps the audit log reproducible
	for _, key := range []string{models.MetricBP, models.MetricPulse, models.MetricGlucose, models.MetricSleep, models.MetricWeight} {
		s := series[key]
		if result := t.analyzeSingleMetric(ctx, s.cacheName, key, s.data, &log); result != nil {
			results[key] = *result
		}
	}

	log = append(log, fmt.Sprintf("[Trend] Completed: %d metrics with trends, %d insufficient data", len(results), len(series)-len(results)))
	return results, log
}

func (t *TrendAnalyzer) analyzeSingleMetric(ctx context.Context, name, metricKey string, data []timedValue, log *[]string) *models.TrendResult {
	if len(data) < t.cfg.Analysis.TrendMinPoints {
		*log = append(*log, fmt.Sprintf("[Trend] %s: %d points (need >=%d), skipped", name, len(data), t.cfg.Analysis.TrendMinPoints))
		return nil
	}

	sorted := append([]timedValue(nil), data...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ts.Before(sorted[j].ts) })

	earliest := sorted[0].ts
	latest := sorted[len(sorted)-1].ts
	daySpan := daysBetween(earliest, latest)
	if daySpan < t.cfg.Analysis.TrendMinDays {
		*log = append(*log, fmt.Sprintf("[Trend] %s: %d points over %d days (need >=%d), skipped", name, len(sorted), daySpan, t.cfg.Analysis.TrendMinDays))
		return nil
	}

	lock := t.metricLock(name)
	lock.Lock()
	defer lock.Unlock()

	values := make([]float64, len(sorted))
	for i, v := range sorted {
		values[i] = v.value
	}
	currentAvg := trailingAverage(values, trailingWindow)

	if entry, ok := t.cache.GetTrend(ctx, name); ok && t.cache.Fresh(entry.TrainedAt, t.now()) {
		result := &models.TrendResult{
			Direction:   entry.Direction,
			SlopePerDay: entry.SlopePerDay,
			Message:     entry.Message,
		}
		// Recompute projections from the stored model artifact when it
		// is still resolvable
		if entry.Model != nil {
			result.Projection = projectLine(metricKey, entry.Model.Slope, entry.Model.Intercept, float64(daySpan), currentAvg)
		}
		*log = append(*log, fmt.Sprintf("[Trend] %s: %d pts, %d days, CACHE HIT -> %s (slope=%.4f/day)",
			name, len(sorted), daySpan, entry.Direction, entry.SlopePerDay))
		return result
	}

	result, model := t.fitTrend(name, metricKey, sorted, values, earliest, daySpan, currentAvg, log)
	if result == nil {
		return nil
	}

	t.cache.SetTrend(ctx, name, cache.TrendCacheEntry{
		Direction:   result.Direction,
		SlopePerDay: result.SlopePerDay,
		Message:     result.Message,
		Model:       model,
		TrainedAt:   t.now(),
	})
	return result
}

// fitTrend fits value against day offset. The pluggable fitter is the
// primary path; closed-form OLS is the deterministic fallback and feeds
// the same direction classification.
func (t *TrendAnalyzer) fitTrend(name, metricKey string, sorted []timedValue, values []float64, earliest time.Time, daySpan int, currentAvg float64, log *[]string) (*models.TrendResult, *cache.TrendModel) {
	dayIndices := make([]float64, len(sorted))
	features := make([][]float64, len(sorted))
	for i, v := range sorted {
		dayIndices[i] = float64(daysBetween(earliest, v.ts))
		features[i] = []float64{dayIndices[i]}
	}
	meanValue, _ := stats.Mean(values)
	totalDays := dayIndices[len(dayIndices)-1]

	var slope, intercept float64
	fitted, err := t.fitter.Fit(features, values)
	if err == nil {
		// Slope recovered from the model's predictions over the data span
		startVal := fitted.Predict([]float64{0})
		endVal := fitted.Predict([]float64{totalDays})
		if totalDays > 0 {
			slope = (endVal - startVal) / totalDays
		}
		intercept = startVal
	} else {
		*log = append(*log, fmt.Sprintf("[Trend] %s: model fit failed (%v), falling back to closed-form regression", name, err))
		slope, intercept, err = stats.LinearRegression(dayIndices, values)
		if err != nil {
			*log = append(*log, fmt.Sprintf("[Trend] %s: degenerate regression (%v), skipped", name, err))
			return nil, nil
		}
	}

	normalizedSlope := 0.0
	if meanValue != 0 {
		normalizedSlope = slope / meanValue
	}
	direction, message := classifyTrend(name, normalizedSlope)

	*log = append(*log, fmt.Sprintf("[Trend] %s: %d pts, %d days, slope=%.4f/day, normalized=%.5f, direction=%s",
		name, len(sorted), daySpan, slope, normalizedSlope, direction))

	result := &models.TrendResult{
		Direction:   direction,
		SlopePerDay: slope,
		Message:     message,
		Projection:  projectLine(metricKey, slope, intercept, totalDays, currentAvg),
	}
	return result, &cache.TrendModel{Slope: slope, Intercept: intercept}
}

// classifyTrend maps a normalized slope to a direction. A falling trend
// improves every metric except sleep, where less sleep is worse.
func classifyTrend(name string, normalizedSlope float64) (models.TrendDirection, string) {
	switch {
	case normalizedSlope > normalizedSlopeBand:
		return models.TrendWorsening, fmt.Sprintf("%s is trending upward.", name)
	case normalizedSlope < -normalizedSlopeBand:
		if name == models.MetricSleep {
			return models.TrendWorsening, "Sleep duration is trending downward."
		}
		return models.TrendImproving, fmt.Sprintf("%s is trending downward.", name)
	}
	return models.TrendStable, fmt.Sprintf("%s is stable.", name)
}

// projectLine evaluates a fitted line at the +7/+30/+90 day horizons past
// the latest known day index.
func projectLine(metricKey string, slope, intercept, totalDays, currentAvg float64) *models.HealthProjection {
	return &models.HealthProjection{
		Metric:      metricKey,
		CurrentAvg:  currentAvg,
		OneWeek:     intercept + slope*(totalDays+7),
		OneMonth:    intercept + slope*(totalDays+30),
		ThreeMonths: intercept + slope*(totalDays+90),
	}
}

func (t *TrendAnalyzer) metricLock(name string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.locks[name]; !ok {
		t.locks[name] = &sync.Mutex{}
	}
	return t.locks[name]
}

// trailingAverage is the mean of the last window samples, via SMA when a
// full window exists.
func trailingAverage(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) < window {
		m, _ := stats.Mean(values)
		return m
	}
	sma := trend.NewSmaWithPeriod[float64](window)
	out := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
	if len(out) == 0 {
		m, _ := stats.Mean(values[len(values)-window:])
		return m
	}
	return out[len(out)-1]
}

// daysBetween is the calendar-day difference between two timestamps.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

func bpSystolicSeries(readings []models.BloodPressureReading) []timedValue {
	out := make([]timedValue, len(readings))
	for i, r := range readings {
		out[i] = timedValue{value: float64(r.Systolic), ts: r.Timestamp}
	}
	return out
}

func pulseSeries(readings []models.PulseReading) []timedValue {
	out := make([]timedValue, len(readings))
	for i, r := range readings {
		out[i] = timedValue{value: float64(r.Pulse), ts: r.Timestamp}
	}
	return out
}

func glucoseSeries(readings []models.GlucoseReading) []timedValue {
	out := make([]timedValue, len(readings))
	for i, r := range readings {
		out[i] = timedValue{value: r.Glucose, ts: r.Timestamp}
	}
	return out
}

func sleepSeries(readings []models.SleepReading) []timedValue {
	out := make([]timedValue, len(readings))
	for i, r := range readings {
		out[i] = timedValue{value: r.Hours, ts: r.Timestamp}
	}
	return out
}

func weightSeries(readings []models.WeightReading) []timedValue {
	out := make([]timedValue, len(readings))
	for i, r := range readings {
		out[i] = timedValue{value: r.Weight, ts: r.Timestamp}
	}
	return out
}
