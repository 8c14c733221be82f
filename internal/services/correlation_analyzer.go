package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/healthpulse/healthpulse-go/internal/cache"
	"github.com/healthpulse/healthpulse-go/internal/config"
	"github.com/healthpulse/healthpulse-go/internal/models"
	"github.com/healthpulse/healthpulse-go/internal/regression"
	"github.com/healthpulse/healthpulse-go/internal/stats"
)

// Population-typical defaults for missing feature values, and the height
// fallback when no height readings exist.
const (
	defaultSystolic  = 120.0
	defaultDiastolic = 80.0
	defaultPulse     = 72.0
	defaultGlucose   = 95.0
	defaultSleep     = 7.5
	defaultBMI       = 22.0
	defaultHeightCm  = 170.0
)

// minimumMetricTypes is how many metrics must individually pass the trend
// gate before cross-metric analysis runs.
const minimumMetricTypes = 2

// CorrelationAnalyzer mines pairwise correlations over day-aligned feature
// rows and trains a secondary regression that predicts the rule score from
// those rows.
type CorrelationAnalyzer struct {
	cfg    *config.Config
	cache  *cache.AnalysisCache
	scorer *RuleScorer
	fitter regression.Fitter
	logger *logrus.Logger
	now    func() time.Time

	// guards the shared alert cache's read-retrain-write cycle
	alertMu sync.Mutex
}

// CorrelationOutput is the result of one cross-metric pass.
type CorrelationOutput struct {
	Alerts          []models.CorrelationAlert
	ModelScore      *int
	ProjectedScores *models.ProjectedScores
	Log             []string
}

// NewCorrelationAnalyzer creates a cross-metric analyzer sharing the rule
// scorer's row formula and the analysis cache.
func NewCorrelationAnalyzer(cfg *config.Config, analysisCache *cache.AnalysisCache, scorer *RuleScorer, fitter regression.Fitter, logger *logrus.Logger) *CorrelationAnalyzer {
	return &CorrelationAnalyzer{
		cfg:    cfg,
		cache:  analysisCache,
		scorer: scorer,
		fitter: fitter,
		logger: logger,
		now:    time.Now,
	}
}

// AnalyzeCorrelations runs the eligibility gate, alert mining and the
// composite-score regression. Every degradation path returns a well-formed
// output rather than failing the analysis.
func (c *CorrelationAnalyzer) AnalyzeCorrelations(ctx context.Context, readings models.ReadingSet, projections map[string]models.HealthProjection) CorrelationOutput {
	log := []string{"[CrossMetric] Starting cross-metric correlation analysis..."}

	qualified := c.qualifiedMetrics(readings)
	log = append(log, fmt.Sprintf("[CrossMetric] Qualified metrics (%d/%d needed): %s",
		len(qualified), minimumMetricTypes, strings.Join(qualified, ", ")))
	if len(qualified) < minimumMetricTypes {
		log = append(log, "[CrossMetric] Not enough metric types, skipping correlation analysis")
		return CorrelationOutput{Alerts: []models.CorrelationAlert{}, Log: log}
	}

	c.alertMu.Lock()
	defer c.alertMu.Unlock()

	var cachedAlerts []models.CorrelationAlert
	haveCached := false
	if entry, ok := c.cache.GetAlerts(ctx); ok && c.cache.Fresh(entry.TrainedAt, c.now()) {
		cachedAlerts = entry.Alerts
		haveCached = true
		log = append(log, fmt.Sprintf("[CrossMetric] CACHE HIT: %d cached alerts", len(cachedAlerts)))
		for _, alert := range cachedAlerts {
			log = append(log, fmt.Sprintf("[CrossMetric]   -> %s: %s [%s]",
				strings.Join(alert.Metrics, " vs "), alert.Description, alert.Severity))
		}
	}

	rows := c.buildFeatureRows(readings)
	log = append(log, fmt.Sprintf("[CrossMetric] Built %d day-aligned feature rows (need >=%d)", len(rows), c.cfg.Analysis.MinFeatureRows))
	if len(rows) < c.cfg.Analysis.MinFeatureRows {
		log = append(log, "[CrossMetric] Not enough aligned rows, skipping")
		if cachedAlerts == nil {
			cachedAlerts = []models.CorrelationAlert{}
		}
		return CorrelationOutput{Alerts: cachedAlerts, Log: log}
	}

	var alerts []models.CorrelationAlert
	if haveCached {
		alerts = cachedAlerts
	} else {
		alerts = c.computeCorrelationAlerts(rows, &log)
		c.cache.SetAlerts(ctx, cache.AlertCacheEntry{Alerts: alerts, TrainedAt: c.now()})
		log = append(log, fmt.Sprintf("[CrossMetric] CACHE MISS, computed %d alerts (cached for 24h)", len(alerts)))
	}

	modelScore, projectedScores := c.trainAndPredictCompositeScore(rows, readings, projections, &log)

	return CorrelationOutput{
		Alerts:          alerts,
		ModelScore:      modelScore,
		ProjectedScores: projectedScores,
		Log:             log,
	}
}

// qualifiedMetrics lists metrics that individually satisfy the trend
// analyzer's point and span gate.
func (c *CorrelationAnalyzer) qualifiedMetrics(readings models.ReadingSet) []string {
	var qualified []string

	check := func(label string, count int, dates []time.Time) {
		if c.hasEnoughData(dates) {
			qualified = append(qualified, fmt.Sprintf("%s(%d)", label, count))
		}
	}

	check("BP", len(readings.BloodPressure), bpDates(readings.BloodPressure))
	check("Pulse", len(readings.Pulse), pulseDates(readings.Pulse))
	check("Glucose", len(readings.Glucose), glucoseDates(readings.Glucose))
	check("Sleep", len(readings.Sleep), sleepDates(readings.Sleep))
	check("Weight", len(readings.Weight), weightDates(readings.Weight))

	return qualified
}

func (c *CorrelationAnalyzer) hasEnoughData(dates []time.Time) bool {
	if len(dates) < c.cfg.Analysis.TrendMinPoints {
		return false
	}
	earliest, latest := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(earliest) {
			earliest = d
		}
		if d.After(latest) {
			latest = d
		}
	}
	return daysBetween(earliest, latest) >= c.cfg.Analysis.TrendMinDays
}

// buildFeatureRows buckets every reading by calendar-day offset from the
// globally earliest timestamp, averaging same-day values. BMI comes from
// same-day weight and the overall average height. Rows with fewer than
// two populated fields are dropped.
func (c *CorrelationAnalyzer) buildFeatureRows(readings models.ReadingSet) []models.FeatureRow {
	var allDates []time.Time
	allDates = append(allDates, bpDates(readings.BloodPressure)...)
	allDates = append(allDates, pulseDates(readings.Pulse)...)
	allDates = append(allDates, glucoseDates(readings.Glucose)...)
	allDates = append(allDates, sleepDates(readings.Sleep)...)
	allDates = append(allDates, weightDates(readings.Weight)...)
	if len(allDates) == 0 {
		return nil
	}

	earliest, latest := allDates[0], allDates[0]
	for _, d := range allDates[1:] {
		if d.Before(earliest) {
			earliest = d
		}
		if d.After(latest) {
			latest = d
		}
	}
	totalDays := daysBetween(earliest, latest)
	if totalDays <= 0 {
		return nil
	}

	sysByDay := make(map[int][]float64)
	diaByDay := make(map[int][]float64)
	pulseByDay := make(map[int][]float64)
	glucoseByDay := make(map[int][]float64)
	sleepByDay := make(map[int][]float64)
	bmiByDay := make(map[int][]float64)

	for _, r := range readings.BloodPressure {
		d := daysBetween(earliest, r.Timestamp)
		sysByDay[d] = append(sysByDay[d], float64(r.Systolic))
		diaByDay[d] = append(diaByDay[d], float64(r.Diastolic))
	}
	for _, r := range readings.Pulse {
		d := daysBetween(earliest, r.Timestamp)
		pulseByDay[d] = append(pulseByDay[d], float64(r.Pulse))
	}
	for _, r := range readings.Glucose {
		d := daysBetween(earliest, r.Timestamp)
		glucoseByDay[d] = append(glucoseByDay[d], r.Glucose)
	}
	for _, r := range readings.Sleep {
		d := daysBetween(earliest, r.Timestamp)
		sleepByDay[d] = append(sleepByDay[d], r.Hours)
	}

	if avgHeight, ok := averageHeight(readings.Height); ok && avgHeight > 0 {
		for _, r := range readings.Weight {
			d := daysBetween(earliest, r.Timestamp)
			bmi := r.Weight / ((avgHeight / 100) * (avgHeight / 100))
			bmiByDay[d] = append(bmiByDay[d], bmi)
		}
	}

	avg := func(vals []float64) *float64 {
		if len(vals) == 0 {
			return nil
		}
		m, _ := stats.Mean(vals)
		return &m
	}

	var rows []models.FeatureRow
	for day := 0; day <= totalDays; day++ {
		row := models.FeatureRow{
			DayIndex:  day,
			Systolic:  avg(sysByDay[day]),
			Diastolic: avg(diaByDay[day]),
			Pulse:     avg(pulseByDay[day]),
			Glucose:   avg(glucoseByDay[day]),
			Sleep:     avg(sleepByDay[day]),
			BMI:       avg(bmiByDay[day]),
		}
		if row.PopulatedFields() >= 2 {
			rows = append(rows, row)
		}
	}
	return rows
}

// computeCorrelationAlerts runs Pearson correlation over every metric pair
// with enough jointly-populated rows.
func (c *CorrelationAnalyzer) computeCorrelationAlerts(rows []models.FeatureRow, log *[]string) []models.CorrelationAlert {
	alerts := []models.CorrelationAlert{}

	extractors := []struct {
		name    string
		extract func(models.FeatureRow) *float64
	}{
		{"Blood Pressure", func(r models.FeatureRow) *float64 { return r.Systolic }},
		{"Pulse", func(r models.FeatureRow) *float64 { return r.Pulse }},
		{"Glucose", func(r models.FeatureRow) *float64 { return r.Glucose }},
		{"Sleep", func(r models.FeatureRow) *float64 { return r.Sleep }},
		{"BMI", func(r models.FeatureRow) *float64 { return r.BMI }},
	}

	pairsChecked := 0
	for i := 0; i < len(extractors); i++ {
		for j := i + 1; j < len(extractors); j++ {
			nameA, extractA := extractors[i].name, extractors[i].extract
			nameB, extractB := extractors[j].name, extractors[j].extract

			var pairsA, pairsB []float64
			for _, row := range rows {
				a, b := extractA(row), extractB(row)
				if a != nil && b != nil {
					pairsA = append(pairsA, *a)
					pairsB = append(pairsB, *b)
				}
			}

			if len(pairsA) < c.cfg.Analysis.MinPairRows {
				*log = append(*log, fmt.Sprintf("[CrossMetric] %s vs %s: %d paired points (need >=%d), skipped",
					nameA, nameB, len(pairsA), c.cfg.Analysis.MinPairRows))
				continue
			}

			pairsChecked++
			corr := stats.Pearson(pairsA, pairsB)
			absCorr := math.Abs(corr)

			if absCorr >= c.cfg.Analysis.CorrelationElevated {
				direction := "positively"
				if corr < 0 {
					direction = "inversely"
				}
				severity := models.RiskElevated
				if absCorr >= c.cfg.Analysis.CorrelationHigh {
					severity = models.RiskHigh
				}
				alerts = append(alerts, models.CorrelationAlert{
					Metrics:     []string{nameA, nameB},
					Description: fmt.Sprintf("%s and %s appear %s correlated in your readings.", nameA, nameB, direction),
					Severity:    severity,
				})
				*log = append(*log, fmt.Sprintf("[CrossMetric] %s vs %s: r=%.3f (%d pairs) -> ALERT (%s, %s)",
					nameA, nameB, corr, len(pairsA), severity, direction))
			} else {
				*log = append(*log, fmt.Sprintf("[CrossMetric] %s vs %s: r=%.3f (%d pairs) -> below threshold",
					nameA, nameB, corr, len(pairsA)))
			}
		}
	}

	*log = append(*log, fmt.Sprintf("[CrossMetric] Checked %d metric pairs, generated %d alerts", pairsChecked, len(alerts)))
	return alerts
}

// trainAndPredictCompositeScore fits a regression from feature rows to the
// row-wise rule score, predicts the current composite score and, when
// per-metric projections exist, re-predicts at the future horizons. Any
// failure degrades to absent values.
func (c *CorrelationAnalyzer) trainAndPredictCompositeScore(rows []models.FeatureRow, readings models.ReadingSet, projections map[string]models.HealthProjection, log *[]string) (*int, *models.ProjectedScores) {
	avgHeight := defaultHeightCm
	if h, ok := averageHeight(readings.Height); ok {
		avgHeight = h
	}

	features := make([][]float64, len(rows))
	targets := make([]float64, len(rows))
	for i, row := range rows {
		sys := valueOr(row.Systolic, defaultSystolic)
		dia := valueOr(row.Diastolic, defaultDiastolic)
		pulse := valueOr(row.Pulse, defaultPulse)
		glucose := valueOr(row.Glucose, defaultGlucose)
		sleep := valueOr(row.Sleep, defaultSleep)
		bmi := valueOr(row.BMI, defaultBMI)

		features[i] = []float64{sys, dia, pulse, glucose, sleep, bmi}
		targets[i] = float64(c.scorer.ScoreRow(sys, dia, pulse, glucose, sleep, bmi))
	}

	model, err := c.fitter.Fit(features, targets)
	if err != nil {
		*log = append(*log, fmt.Sprintf("[CrossMetric] composite regression failed: %v", err))
		return nil, nil
	}

	latest := make([]float64, 6)
	for col := 0; col < 6; col++ {
		column := make([]float64, len(features))
		for i := range features {
			column[i] = features[i][col]
		}
		latest[col] = trailingAverage(column, trailingWindow)
	}
	latestSys, latestDia := latest[0], latest[1]
	latestPulse, latestGlucose := latest[2], latest[3]
	latestSleep, latestBMI := latest[4], latest[5]

	current := stats.ClampScore(int(model.Predict(latest)))
	*log = append(*log, fmt.Sprintf("[CrossMetric] composite regression trained, current predicted score: %d", current))

	var projected *models.ProjectedScores
	if len(projections) > 0 {
		predictAt := func(horizon func(models.HealthProjection) float64) int {
			sys := latestSys
			if p, ok := projections[models.MetricBP]; ok {
				sys = horizon(p)
			}
			// Diastolic follows the latest dia/sys ratio
			dia := sys * (latestDia / math.Max(latestSys, 1))
			pulse := latestPulse
			if p, ok := projections[models.MetricPulse]; ok {
				pulse = horizon(p)
			}
			glucose := latestGlucose
			if p, ok := projections[models.MetricGlucose]; ok {
				glucose = horizon(p)
			}
			sleep := latestSleep
			if p, ok := projections[models.MetricSleep]; ok {
				sleep = horizon(p)
			}
			bmi := latestBMI
			if p, ok := projections[models.MetricWeight]; ok && avgHeight > 0 {
				bmi = horizon(p) / ((avgHeight / 100) * (avgHeight / 100))
			}
			return stats.ClampScore(int(model.Predict([]float64{sys, dia, pulse, glucose, sleep, bmi})))
		}

		projected = &models.ProjectedScores{
			OneWeek:     predictAt(func(p models.HealthProjection) float64 { return p.OneWeek }),
			OneMonth:    predictAt(func(p models.HealthProjection) float64 { return p.OneMonth }),
			ThreeMonths: predictAt(func(p models.HealthProjection) float64 { return p.ThreeMonths }),
		}
		*log = append(*log, fmt.Sprintf("[CrossMetric] Projected scores: 1w=%d, 1m=%d, 3m=%d",
			projected.OneWeek, projected.OneMonth, projected.ThreeMonths))
	}

	return &current, projected
}

func valueOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

func averageHeight(readings []models.HeightReading) (float64, bool) {
	if len(readings) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, r := range readings {
		sum += r.Height
	}
	return sum / float64(len(readings)), true
}

func bpDates(readings []models.BloodPressureReading) []time.Time {
	out := make([]time.Time, len(readings))
	for i, r := range readings {
		out[i] = r.Timestamp
	}
	return out
}

func pulseDates(readings []models.PulseReading) []time.Time {
	out := make([]time.Time, len(readings))
	for i, r := range readings {
		out[i] = r.Timestamp
	}
	return out
}

func glucoseDates(readings []models.GlucoseReading) []time.Time {
	out := make([]time.Time, len(readings))
	for i, r := range readings {
		out[i] = r.Timestamp
	}
	return out
}

func sleepDates(readings []models.SleepReading) []time.Time {
	out := make([]time.Time, len(readings))
	for i, r := range readings {
		out[i] = r.Timestamp
	}
	return out
}

func weightDates(readings []models.WeightReading) []time.Time {
	out := make([]time.Time, len(readings))
	for i, r := range readings {
		out[i] = r.Timestamp
	}
	return out
}
