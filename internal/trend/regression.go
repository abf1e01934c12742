package trend

import (
	"math"

	"github.com/montanaflynn/stats"
)

// line is a least-squares fit of score over days since the first snapshot.
type line struct {
	slope     float64
	intercept float64
	r2        float64
}

func (l line) at(x float64) float64 {
	return l.intercept + l.slope*x
}

// fitLine fits series. It fails when every snapshot shares one timestamp.
func fitLine(series []Snapshot) (line, bool) {
	if len(series) < 2 {
		return line{}, false
	}
	xs := make(stats.Float64Data, len(series))
	ys := make(stats.Float64Data, len(series))
	for i, s := range series {
		xs[i] = days(series[0].Timestamp, s.Timestamp)
		ys[i] = s.Score
	}

	varX, err := stats.PopulationVariance(xs)
	if err != nil || varX == 0 {
		return line{}, false
	}
	cov, err := stats.CovariancePopulation(xs, ys)
	if err != nil {
		return line{}, false
	}
	meanX, _ := xs.Mean()
	meanY, _ := ys.Mean()

	l := line{slope: cov / varX}
	l.intercept = meanY - l.slope*meanX

	varY, _ := stats.PopulationVariance(ys)
	if varY == 0 {
		// A flat series is fitted exactly by a flat line.
		l.r2 = 1
	} else {
		r, err := stats.Correlation(xs, ys)
		if err == nil && !math.IsNaN(r) {
			l.r2 = r * r
		}
	}
	return l, true
}

// relativeResidualStdDev is the standard deviation of the residuals around
// l divided by the mean score.
func (l line) relativeResidualStdDev(series []Snapshot) float64 {
	residuals := make(stats.Float64Data, len(series))
	scores := make(stats.Float64Data, len(series))
	for i, s := range series {
		residuals[i] = s.Score - l.at(days(series[0].Timestamp, s.Timestamp))
		scores[i] = s.Score
	}
	m, err := scores.Mean()
	if err != nil || m == 0 {
		return 0
	}
	sd, err := residuals.StandardDeviationPopulation()
	if err != nil {
		return 0
	}
	return sd / m
}
