// Package trend analyzes a caller-supplied history of risk snapshots: the
// direction and speed of change, statistical outliers, and a short linear
// forecast.
package trend

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/riskerr"
)

// Constant of the modified z-score: 0.6745 is the 0.75 quantile of the
// standard normal, making MAD comparable to a standard deviation.
const madScale = 0.6745

// Analyzer runs trend analyses. It holds no per-call state.
type Analyzer struct {
	config Config
	logger *logging.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(config Config) *Analyzer {
	return &Analyzer{
		config: config,
		logger: logging.GetLogger("trend"),
	}
}

// Analyze computes direction, severity, anomalies and a forecast. Fewer than
// two snapshots yield a stable, low-quality result without a forecast rather
// than an error.
func (a *Analyzer) Analyze(snapshots []Snapshot, opts Options) (*Result, error) {
	horizon, err := a.horizon(opts.HorizonDays)
	if err != nil {
		return nil, err
	}
	series, warnings, err := a.prepare(snapshots)
	if err != nil {
		return nil, err
	}

	result := &Result{
		SampleSize:        len(series),
		Direction:         DirectionStable,
		Severity:          SeverityLow,
		Anomalies:         []Anomaly{},
		AnomalyConfidence: ConfidenceLow,
		DataQuality:       a.dataQuality(len(series)),
		Warnings:          warnings,
	}
	if len(series) > 0 {
		result.ResourceID = series[0].ResourceID
	}
	if len(series) < 2 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("insufficient snapshots for trend analysis: got %d, need at least 2", len(series)))
		return result, nil
	}

	scores := scoresOf(series)
	first, second := halves(scores)
	result.FirstHalfMean = round(mean(first))
	result.SecondHalfMean = round(mean(second))
	result.ChangePercentage = round(changePercent(result.FirstHalfMean, result.SecondHalfMean))

	fit, fitOK := fitLine(series)
	if fitOK && len(series) >= 3 {
		result.Volatility = round(fit.relativeResidualStdDev(series))
	}
	result.Direction = a.direction(result.ChangePercentage, result.Volatility, reverses(scores))
	result.Severity = severity(result.ChangePercentage, scores[len(scores)-1])

	result.Anomalies, result.AnomalyConfidence = a.anomalies(series)
	switch {
	case len(series) < a.config.MinAnomalySamples:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("anomaly detection needs at least %d snapshots", a.config.MinAnomalySamples))
	case len(series) < a.config.MinSamples:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("anomaly detection on fewer than %d snapshots is low confidence", a.config.MinSamples))
	}

	if fitOK {
		result.Forecast = a.forecast(series, fit, horizon)
	} else {
		result.Warnings = append(result.Warnings, "all snapshots share one timestamp; no forecast")
	}
	return result, nil
}

// Forecast projects the score horizonDays after the last snapshot. It
// returns InsufficientData for fewer than two snapshots.
func (a *Analyzer) Forecast(snapshots []Snapshot, horizonDays int) (*Forecast, error) {
	horizon, err := a.horizon(horizonDays)
	if err != nil {
		return nil, err
	}
	series, _, err := a.prepare(snapshots)
	if err != nil {
		return nil, err
	}
	if len(series) < 2 {
		return nil, riskerr.InsufficientData("forecasting needs at least 2 snapshots, got %d", len(series)).
			WithDetail("sample_size", len(series))
	}
	fit, ok := fitLine(series)
	if !ok {
		return nil, riskerr.InsufficientData("forecasting needs snapshots at distinct timestamps")
	}
	return a.forecast(series, fit, horizon), nil
}

func (a *Analyzer) horizon(days int) (int, error) {
	switch {
	case days < 0:
		return 0, riskerr.InvalidParameter("horizon_days", "must be >= 0, got %d", days)
	case days == 0:
		return a.config.DefaultHorizonDays, nil
	case days > a.config.MaxHorizonDays:
		return a.config.MaxHorizonDays, nil
	}
	return days, nil
}

// prepare validates and sorts a copy of snapshots.
func (a *Analyzer) prepare(snapshots []Snapshot) ([]Snapshot, []string, error) {
	warnings := []string{}
	resourceID := ""
	for i, s := range snapshots {
		if s.Timestamp.IsZero() {
			return nil, nil, riskerr.InvalidParameter("snapshots", "snapshot %d has no timestamp", i)
		}
		if math.IsNaN(s.Score) || s.Score < 0 || s.Score > 100 {
			return nil, nil, riskerr.InvalidParameter("snapshots", "snapshot %d score %v outside [0,100]", i, s.Score)
		}
		if s.ResourceID != "" {
			if resourceID != "" && s.ResourceID != resourceID {
				return nil, nil, riskerr.InvalidParameter("snapshots",
					"snapshots mix resources %q and %q", resourceID, s.ResourceID)
			}
			resourceID = s.ResourceID
		}
	}

	series := make([]Snapshot, len(snapshots))
	copy(series, snapshots)
	sorted := sort.SliceIsSorted(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
	if !sorted {
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		})
		a.logger.Warn("Snapshots for %q were not in ascending order; sorted %d snapshots", resourceID, len(series))
		warnings = append(warnings, "snapshots were not in ascending timestamp order and have been sorted")
	}
	for i := range series {
		if series[i].ResourceID == "" {
			series[i].ResourceID = resourceID
		}
	}
	return series, warnings, nil
}

func (a *Analyzer) dataQuality(n int) Confidence {
	switch {
	case n >= a.config.HighConfidenceSample:
		return ConfidenceHigh
	case n >= a.config.MinSamples:
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// direction classifies the change. Volatility takes precedence, but only on
// a series that reverses direction: a monotone series that curves away from
// its linear fit is still degrading or improving.
func (a *Analyzer) direction(changePct, volatility float64, reversing bool) Direction {
	switch {
	case reversing && volatility > a.config.VolatilityThreshold:
		return DirectionVolatile
	case changePct >= a.config.StablePercent:
		return DirectionDegrading
	case changePct <= -a.config.StablePercent:
		return DirectionImproving
	}
	return DirectionStable
}

func severity(changePct, last float64) Severity {
	change := math.Abs(changePct)
	switch {
	case change >= 50 || last >= 75:
		return SeverityCritical
	case change >= 25 || last >= 50:
		return SeverityHigh
	case change >= 10 || last >= 25:
		return SeverityMedium
	}
	return SeverityLow
}

// anomalies flags snapshots whose classic z-score reaches AnomalyZ. The
// severity is high when either the classic or the median/MAD based robust
// z-score reaches HighAnomalyZ. The robust score matters on short series,
// where a single outlier inflates the standard deviation enough to cap its
// own classic z-score below 3.
func (a *Analyzer) anomalies(series []Snapshot) ([]Anomaly, Confidence) {
	out := []Anomaly{}
	n := len(series)
	if n < a.config.MinAnomalySamples {
		return out, ConfidenceLow
	}
	confidence := a.dataQuality(n)

	scores := stats.Float64Data(scoresOf(series))
	mu, err := scores.Mean()
	if err != nil {
		return out, confidence
	}
	sd, err := scores.StandardDeviationSample()
	if err != nil || sd == 0 {
		return out, confidence
	}
	median, _ := scores.Median()
	mad, _ := stats.MedianAbsoluteDeviationPopulation(scores)

	for i, s := range series {
		z := (scores[i] - mu) / sd
		if math.Abs(z) < a.config.AnomalyZ {
			continue
		}
		var robust float64
		if mad > 0 {
			robust = madScale * (scores[i] - median) / mad
		}
		sev := AnomalyModerate
		if math.Max(math.Abs(z), math.Abs(robust)) >= a.config.HighAnomalyZ {
			sev = AnomalyHigh
		}
		out = append(out, Anomaly{
			Timestamp:    s.Timestamp,
			Value:        s.Score,
			ZScore:       round(z),
			RobustZScore: round(robust),
			Severity:     sev,
		})
	}
	return out, confidence
}

func (a *Analyzer) forecast(series []Snapshot, fit line, horizonDays int) *Forecast {
	last := series[len(series)-1].Timestamp
	x := days(series[0].Timestamp, last) + float64(horizonDays)
	value := math.Max(0, math.Min(100, fit.at(x)))

	conf := ConfidenceLow
	n := len(series)
	switch {
	case n >= a.config.HighConfidenceSample && fit.r2 >= 0.7:
		conf = ConfidenceHigh
	case n >= a.config.MinSamples && fit.r2 >= 0.4:
		conf = ConfidenceMedium
	}
	return &Forecast{
		HorizonDays: horizonDays,
		Timestamp:   last.Add(time.Duration(horizonDays) * 24 * time.Hour),
		Score:       round(value),
		SlopePerDay: round(fit.slope),
		RSquared:    round(fit.r2),
		Confidence:  conf,
	}
}

func scoresOf(series []Snapshot) []float64 {
	out := make([]float64, len(series))
	for i, s := range series {
		out[i] = s.Score
	}
	return out
}

// reverses reports whether consecutive differences change sign. Flat steps
// are ignored, so a series needs at least three points to reverse.
func reverses(scores []float64) bool {
	prev := 0.0
	for i := 1; i < len(scores); i++ {
		d := scores[i] - scores[i-1]
		if d == 0 {
			continue
		}
		if prev != 0 && (d > 0) != (prev > 0) {
			return true
		}
		prev = d
	}
	return false
}

// halves splits scores into a first and second half, dropping the middle
// element of an odd-length series.
func halves(scores []float64) ([]float64, []float64) {
	half := len(scores) / 2
	return scores[:half], scores[len(scores)-half:]
}

func mean(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return 0
	}
	return m
}

func changePercent(from, to float64) float64 {
	if from == 0 {
		if to == 0 {
			return 0
		}
		return 100
	}
	return (to - from) / from * 100
}

func days(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
