package models

import "time"

// MetricRisk classifies a metric's health implication.
type MetricRisk string

const (
	RiskLow      MetricRisk = "low"
	RiskNormal   MetricRisk = "normal"
	RiskElevated MetricRisk = "elevated"
	RiskHigh     MetricRisk = "high"
)

// TrendDirection classifies a metric's multi-week slope.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendWorsening TrendDirection = "worsening"
)

// Overall status labels derived from the final score.
const (
	StatusHealthy        = "Healthy"
	StatusNeedsAttention = "Needs Attention"
	StatusAtRisk         = "At Risk"
)

// MetricAnalysis is the per-metric summary assembled by the orchestrator.
type MetricAnalysis struct {
	Risk      MetricRisk      `json:"risk"`
	Trend     *TrendDirection `json:"trend,omitempty"`
	RecentAvg *float64        `json:"recent_avg,omitempty"`
	Message   string          `json:"message"`
}

// CorrelationAlert flags a strongly correlated metric pair.
type CorrelationAlert struct {
	Metrics     []string   `json:"metrics"`
	Description string     `json:"description"`
	Severity    MetricRisk `json:"severity"`
}

// HealthProjection extrapolates a metric's fitted trend line to fixed
// future horizons.
type HealthProjection struct {
	Metric      string  `json:"metric"`
	CurrentAvg  float64 `json:"current_avg"`
	OneWeek     float64 `json:"one_week"`
	OneMonth    float64 `json:"one_month"`
	ThreeMonths float64 `json:"three_months"`
}

// ProjectedScores are composite wellness scores predicted at the same
// horizons as HealthProjection.
type ProjectedScores struct {
	OneWeek     int `json:"one_week"`
	OneMonth    int `json:"one_month"`
	ThreeMonths int `json:"three_months"`
}

// TrendResult is the outcome of fitting one metric's readings over time.
type TrendResult struct {
	Direction   TrendDirection    `json:"direction"`
	SlopePerDay float64           `json:"slope_per_day"`
	Message     string            `json:"message"`
	Projection  *HealthProjection `json:"projection,omitempty"`
}

// AnalysisResult is the root object returned to the caller. It is created
// fresh per invocation and never mutated after return.
type AnalysisResult struct {
	Score                    int                         `json:"score"`
	Status                   string                      `json:"status"`
	MetricAnalyses           map[string]MetricAnalysis   `json:"metric_analyses"`
	CorrelationAlerts        []CorrelationAlert          `json:"correlation_alerts"`
	DataInsufficiencyMessage *string                     `json:"data_insufficiency_message,omitempty"`
	Timestamp                time.Time                   `json:"timestamp"`
	Projections              map[string]HealthProjection `json:"projections"`
	ProjectedScores          *ProjectedScores            `json:"projected_scores,omitempty"`
	Log                      []string                    `json:"log"`
}
