package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/healthpulse/healthpulse-go/internal/models"
	"github.com/healthpulse/healthpulse-go/internal/stats"
)

// Metric weights as declared percentages. Absent metrics drop out of the
// composite entirely; the weighted mean divides by the remaining total, so
// present metrics absorb the missing share.
const (
	weightBP      = 30.0
	weightPulse   = 15.0
	weightGlucose = 20.0
	weightSleep   = 20.0
	weightBMI     = 15.0
)

// defaultScore is returned when no metric can be scored.
const defaultScore = 50

// RuleScorer maps per-metric averages to clinical-style threshold scores
// and reduces them to one weighted composite. It is stateless.
type RuleScorer struct {
	logger *logrus.Logger
}

// RuleScoreResult is the output of one scoring pass.
type RuleScoreResult struct {
	Score    int
	Risks    map[string]models.MetricRisk
	Messages map[string]string
	Log      []string
}

// scoreComponent is one present metric's contribution to the composite.
type scoreComponent struct {
	name   string
	score  float64
	weight float64
}

// NewRuleScorer creates a new rule-based scorer.
func NewRuleScorer(logger *logrus.Logger) *RuleScorer {
	return &RuleScorer{logger: logger}
}

// ScoreReadings averages each metric's readings and computes the
// weight-redistributed composite score. Metrics without readings are
// absent from the maps, not zero-filled. With no scorable metrics, or a
// zero average height, the fixed default score is returned.
func (s *RuleScorer) ScoreReadings(readings models.ReadingSet) RuleScoreResult {
	var components []scoreComponent
	risks := make(map[string]models.MetricRisk)
	messages := make(map[string]string)
	var log []string

	log = append(log, fmt.Sprintf("[Scoring] Input: BP=%d, Pulse=%d, Glucose=%d, Sleep=%d, Weight=%d, Height=%d",
		len(readings.BloodPressure), len(readings.Pulse), len(readings.Glucose),
		len(readings.Sleep), len(readings.Weight), len(readings.Height)))

	if len(readings.BloodPressure) > 0 {
		sysSum, diaSum := 0, 0
		for _, r := range readings.BloodPressure {
			sysSum += r.Systolic
			diaSum += r.Diastolic
		}
		avgSys := float64(sysSum) / float64(len(readings.BloodPressure))
		avgDia := float64(diaSum) / float64(len(readings.BloodPressure))
		score, risk, msg := scoreBP(avgSys, avgDia)
		components = append(components, scoreComponent{models.MetricBP, score, weightBP})
		risks[models.MetricBP] = risk
		messages[models.MetricBP] = msg
		log = append(log, fmt.Sprintf("[Scoring] BP: avg sys=%d dia=%d, score=%d (%s)", int(avgSys), int(avgDia), int(score), risk))
	} else {
		log = append(log, "[Scoring] BP: no data, skipped")
	}

	if len(readings.Pulse) > 0 {
		sum := 0
		for _, r := range readings.Pulse {
			sum += r.Pulse
		}
		avg := float64(sum) / float64(len(readings.Pulse))
		score, risk, msg := scorePulse(avg)
		components = append(components, scoreComponent{models.MetricPulse, score, weightPulse})
		risks[models.MetricPulse] = risk
		messages[models.MetricPulse] = msg
		log = append(log, fmt.Sprintf("[Scoring] Pulse: avg=%d bpm, score=%d (%s)", int(avg), int(score), risk))
	} else {
		log = append(log, "[Scoring] Pulse: no data, skipped")
	}

	if len(readings.Glucose) > 0 {
		values := make([]float64, len(readings.Glucose))
		for i, r := range readings.Glucose {
			values[i] = r.Glucose
		}
		avg, _ := stats.Mean(values)
		score, risk, msg := scoreGlucose(avg)
		components = append(components, scoreComponent{models.MetricGlucose, score, weightGlucose})
		risks[models.MetricGlucose] = risk
		messages[models.MetricGlucose] = msg
		log = append(log, fmt.Sprintf("[Scoring] Glucose: avg=%.1f mg/dL, score=%d (%s)", avg, int(score), risk))
	} else {
		log = append(log, "[Scoring] Glucose: no data, skipped")
	}

	if len(readings.Sleep) > 0 {
		values := make([]float64, len(readings.Sleep))
		for i, r := range readings.Sleep {
			values[i] = r.Hours
		}
		avg, _ := stats.Mean(values)
		score, risk, msg := scoreSleep(avg)
		components = append(components, scoreComponent{models.MetricSleep, score, weightSleep})
		risks[models.MetricSleep] = risk
		messages[models.MetricSleep] = msg
		log = append(log, fmt.Sprintf("[Scoring] Sleep: avg=%.1f hrs, score=%d (%s)", avg, int(score), risk))
	} else {
		log = append(log, "[Scoring] Sleep: no data, skipped")
	}

	if len(readings.Weight) > 0 && len(readings.Height) > 0 {
		weightVals := make([]float64, len(readings.Weight))
		for i, r := range readings.Weight {
			weightVals[i] = r.Weight
		}
		heightVals := make([]float64, len(readings.Height))
		for i, r := range readings.Height {
			heightVals[i] = r.Height
		}
		avgW, _ := stats.Mean(weightVals)
		avgH, _ := stats.Mean(heightVals)
		if avgH <= 0 {
			// Division-by-zero guard: treated as total failure of the call
			log = append(log, "[Scoring] BMI: height=0, cannot compute, returning default 50")
			return RuleScoreResult{Score: defaultScore, Risks: risks, Messages: messages, Log: log}
		}
		bmi := avgW / ((avgH / 100) * (avgH / 100))
		score, risk, msg := scoreBMI(bmi)
		components = append(components, scoreComponent{models.MetricBMI, score, weightBMI})
		risks[models.MetricBMI] = risk
		messages[models.MetricBMI] = msg
		log = append(log, fmt.Sprintf("[Scoring] BMI: %.1f (w=%.1fkg, h=%.1fcm), score=%d (%s)", bmi, avgW, avgH, int(score), risk))
	} else {
		log = append(log, "[Scoring] BMI: missing weight or height, skipped")
	}

	if len(components) == 0 {
		log = append(log, "[Scoring] No metrics available, returning default score 50")
		return RuleScoreResult{Score: defaultScore, Risks: risks, Messages: messages, Log: log}
	}

	scores := make([]float64, len(components))
	weights := make([]float64, len(components))
	totalWeight := 0.0
	active := ""
	for i, c := range components {
		scores[i] = c.score
		weights[i] = c.weight
		totalWeight += c.weight
		if active != "" {
			active += ", "
		}
		active += fmt.Sprintf("%s=%d%%", c.name, int(c.weight))
	}
	weighted, _ := stats.WeightedMean(scores, weights)
	finalScore := stats.ClampScore(int(weighted))

	log = append(log, fmt.Sprintf("[Scoring] Active weights (redistributed): %s, totalWeight=%d", active, int(totalWeight)))
	log = append(log, fmt.Sprintf("[Scoring] Final rule-based score: %d", finalScore))

	return RuleScoreResult{
		Score:    finalScore,
		Risks:    risks,
		Messages: messages,
		Log:      log,
	}
}

// ScoreRow applies the same weighted-threshold formula to one feature
// row's values. All five weights always participate because callers fill
// missing features with population defaults.
func (s *RuleScorer) ScoreRow(sys, dia, pulse, glucose, sleep, bmi float64) int {
	score := 0.0
	weights := 0.0

	bpScore, _, _ := scoreBP(sys, dia)
	score += bpScore * weightBP
	weights += weightBP

	pulseScore, _, _ := scorePulse(pulse)
	score += pulseScore * weightPulse
	weights += weightPulse

	glucoseScore, _, _ := scoreGlucose(glucose)
	score += glucoseScore * weightGlucose
	weights += weightGlucose

	sleepScore, _, _ := scoreSleep(sleep)
	score += sleepScore * weightSleep
	weights += weightSleep

	bmiScore, _, _ := scoreBMI(bmi)
	score += bmiScore * weightBMI
	weights += weightBMI

	return stats.ClampScore(int(score / weights))
}

// Relaxed wellness thresholds

func scoreBP(avgSys, avgDia float64) (float64, models.MetricRisk, string) {
	switch {
	case avgSys >= 135 || avgDia >= 88:
		return 40, models.RiskHigh, "Blood pressure is elevated. Consider stress management and reducing sodium."
	case avgSys >= 125 || avgDia >= 82:
		return 65, models.RiskElevated, "Blood pressure is slightly above optimal. Monitor regularly."
	case avgSys < 90 || avgDia < 60:
		return 60, models.RiskElevated, "Blood pressure is lower than usual. Stay hydrated."
	}
	return 100, models.RiskNormal, "Blood pressure is in a healthy range."
}

func scorePulse(avg float64) (float64, models.MetricRisk, string) {
	switch {
	case avg > 100 || avg < 50:
		return 40, models.RiskHigh, "Resting pulse is outside normal range."
	case avg > 90 || avg < 55:
		return 70, models.RiskElevated, "Pulse is slightly outside optimal range."
	}
	return 100, models.RiskNormal, "Pulse is in a healthy range."
}

func scoreGlucose(avg float64) (float64, models.MetricRisk, string) {
	switch {
	case avg > 130 || avg < 65:
		return 40, models.RiskHigh, "Glucose levels need attention."
	case avg > 110:
		return 70, models.RiskElevated, "Glucose is slightly elevated."
	}
	return 100, models.RiskNormal, "Glucose is in a healthy range."
}

func scoreSleep(avg float64) (float64, models.MetricRisk, string) {
	switch {
	case avg < 5.5 || avg > 10.5:
		return 40, models.RiskHigh, "Sleep duration needs attention. Aim for 7-9 hours."
	case avg < 6.5 || avg > 9.5:
		return 70, models.RiskElevated, "Sleep is slightly outside optimal range."
	}
	return 100, models.RiskNormal, "Sleep duration is healthy."
}

func scoreBMI(bmi float64) (float64, models.MetricRisk, string) {
	switch {
	case bmi > 30 || bmi < 17:
		return 40, models.RiskHigh, "BMI is outside the healthy range."
	case bmi > 27 || bmi < 18.5:
		return 70, models.RiskElevated, "BMI is slightly outside optimal."
	}
	return 100, models.RiskNormal, "BMI is in a healthy range."
}
