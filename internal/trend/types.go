package trend

import (
	"time"
)

// Snapshot is a point-in-time risk score supplied by the caller.
type Snapshot struct {
	ResourceID string             `json:"resource_id,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Score      float64            `json:"score"`
	Factors    map[string]float64 `json:"factors,omitempty"`
}

// Direction of a trend.
type Direction string

const (
	DirectionImproving Direction = "improving"
	DirectionDegrading Direction = "degrading"
	DirectionStable    Direction = "stable"
	DirectionVolatile  Direction = "volatile"
)

// Severity of a trend.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Confidence tiers for data quality, anomalies and forecasts.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// AnomalySeverity grades a flagged snapshot.
type AnomalySeverity string

const (
	AnomalyModerate AnomalySeverity = "moderate"
	AnomalyHigh     AnomalySeverity = "high"
)

// Anomaly is a snapshot whose score is an outlier in the series.
type Anomaly struct {
	Timestamp    time.Time       `json:"timestamp"`
	Value        float64         `json:"value"`
	ZScore       float64         `json:"z_score"`
	RobustZScore float64         `json:"robust_z_score"`
	Severity     AnomalySeverity `json:"severity"`
}

// Forecast is a linear projection of the score.
type Forecast struct {
	HorizonDays int        `json:"horizon_days"`
	Timestamp   time.Time  `json:"timestamp"`
	Score       float64    `json:"score"`
	SlopePerDay float64    `json:"slope_per_day"`
	RSquared    float64    `json:"r_squared"`
	Confidence  Confidence `json:"confidence"`
}

// Result is the outcome of a trend analysis.
type Result struct {
	ResourceID        string     `json:"resource_id,omitempty"`
	SampleSize        int        `json:"sample_size"`
	Direction         Direction  `json:"direction"`
	Severity          Severity   `json:"severity"`
	ChangePercentage  float64    `json:"change_percentage"`
	FirstHalfMean     float64    `json:"first_half_mean"`
	SecondHalfMean    float64    `json:"second_half_mean"`
	Volatility        float64    `json:"volatility"`
	Anomalies         []Anomaly  `json:"anomalies"`
	AnomalyConfidence Confidence `json:"anomaly_confidence"`
	Forecast          *Forecast  `json:"forecast"`
	DataQuality       Confidence `json:"data_quality"`
	Warnings          []string   `json:"warnings"`
}

// Options tune a single analysis.
type Options struct {
	HorizonDays int `json:"horizon_days"`
}

// Config holds the analyzer thresholds.
type Config struct {
	StablePercent        float64 `yaml:"stable_percent" validate:"gte=0"`
	VolatilityThreshold  float64 `yaml:"volatility_threshold" validate:"gt=0"`
	AnomalyZ             float64 `yaml:"anomaly_z" validate:"gt=0"`
	HighAnomalyZ         float64 `yaml:"high_anomaly_z" validate:"gtfield=AnomalyZ"`
	MinSamples           int     `yaml:"min_samples" validate:"gte=2"`
	MinAnomalySamples    int     `yaml:"min_anomaly_samples" validate:"gte=3"`
	DefaultHorizonDays   int     `yaml:"default_horizon_days" validate:"gte=1"`
	MaxHorizonDays       int     `yaml:"max_horizon_days" validate:"gtefield=DefaultHorizonDays"`
	HighConfidenceSample int     `yaml:"high_confidence_samples" validate:"gtefield=MinSamples"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		StablePercent:        5,
		VolatilityThreshold:  0.15,
		AnomalyZ:             2,
		HighAnomalyZ:         3,
		MinSamples:           5,
		MinAnomalySamples:    3,
		DefaultHorizonDays:   7,
		MaxHorizonDays:       90,
		HighConfidenceSample: 10,
	}
}
