package models

import "time"

// Metric keys used across analyses, caches and API responses.
const (
	MetricBP      = "bp"
	MetricPulse   = "pulse"
	MetricGlucose = "glucose"
	MetricSleep   = "sleep"
	MetricWeight  = "weight"
	MetricBMI     = "bmi"
)

// BloodPressureReading is a single systolic/diastolic measurement.
type BloodPressureReading struct {
	Systolic  int       `json:"systolic"`
	Diastolic int       `json:"diastolic"`
	Timestamp time.Time `json:"timestamp"`
}

// PulseReading is a resting heart rate sample in beats per minute.
type PulseReading struct {
	Pulse     int       `json:"pulse"`
	Timestamp time.Time `json:"timestamp"`
}

// GlucoseReading is a blood glucose sample in mg/dL.
type GlucoseReading struct {
	Glucose   float64   `json:"glucose"`
	Timestamp time.Time `json:"timestamp"`
}

// SleepReading is one night's sleep duration in hours.
type SleepReading struct {
	Hours     float64   `json:"hours"`
	Timestamp time.Time `json:"timestamp"`
}

// WeightReading is a body weight sample in kilograms.
type WeightReading struct {
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
}

// HeightReading is a height sample in centimeters.
type HeightReading struct {
	Height    float64   `json:"height"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadingSet is the read-only snapshot of readings an analysis runs over.
// Each slice is ordered by time; the core never mutates it.
type ReadingSet struct {
	BloodPressure []BloodPressureReading `json:"blood_pressure"`
	Pulse         []PulseReading         `json:"pulse"`
	Glucose       []GlucoseReading       `json:"glucose"`
	Sleep         []SleepReading         `json:"sleep"`
	Weight        []WeightReading        `json:"weight"`
	Height        []HeightReading        `json:"height"`
}

// TotalReadings counts every reading except height, which only feeds BMI.
func (rs ReadingSet) TotalReadings() int {
	return len(rs.BloodPressure) + len(rs.Pulse) + len(rs.Glucose) + len(rs.Sleep) + len(rs.Weight)
}

// FeatureRow is one calendar-day bucket of averaged metric values.
// Rows are ephemeral: rebuilt on every analysis, never persisted.
type FeatureRow struct {
	DayIndex  int      `json:"day_index"`
	Systolic  *float64 `json:"systolic,omitempty"`
	Diastolic *float64 `json:"diastolic,omitempty"`
	Pulse     *float64 `json:"pulse,omitempty"`
	Glucose   *float64 `json:"glucose,omitempty"`
	Sleep     *float64 `json:"sleep,omitempty"`
	BMI       *float64 `json:"bmi,omitempty"`
}

// PopulatedFields returns how many of the six metric fields are present.
func (r FeatureRow) PopulatedFields() int {
	n := 0
	for _, f := range []*float64{r.Systolic, r.Diastolic, r.Pulse, r.Glucose, r.Sleep, r.BMI} {
		if f != nil {
			n++
		}
	}
	return n
}
