// Package timing adjusts risk by when a change happens. A traffic calendar
// classifies each instant as peak, business hours, shoulder, off-hours,
// weekend or maintenance window, and each period carries a risk multiplier.
package timing

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/moolen/riskgraph/internal/riskerr"
)

// Multiplier bounds.
const (
	MinMultiplier = 0.2
	MaxMultiplier = 2.0
)

// Period is the calendar classification of an instant.
type Period string

const (
	PeriodPeak        Period = "peak"
	PeriodBusiness    Period = "business_hours"
	PeriodShoulder    Period = "shoulder"
	PeriodOffHours    Period = "off_hours"
	PeriodWeekend     Period = "weekend"
	PeriodMaintenance Period = "maintenance_window"
)

// Adjustment is a base score scaled by the calendar.
type Adjustment struct {
	BaseScore      float64   `json:"base_score"`
	AdjustedScore  float64   `json:"adjusted_score"`
	Multiplier     float64   `json:"multiplier"`
	Period         Period    `json:"period"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
	Recommendation string    `json:"recommendation"`
}

// Window is a candidate one-hour change slot.
type Window struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Multiplier     float64   `json:"multiplier"`
	Period         Period    `json:"period"`
	Recommendation string    `json:"recommendation"`
}

type maintenance struct {
	day        time.Weekday
	start, end int
}

// Calendar classifies instants in one timezone. It is immutable.
type Calendar struct {
	config      Config
	loc         *time.Location
	maintenance []maintenance
}

// NewCalendar validates config and loads its timezone.
func NewCalendar(config Config) (*Calendar, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", config.Timezone, err)
	}
	c := &Calendar{config: config, loc: loc}
	for _, w := range config.MaintenanceWindows {
		day, _ := parseWeekday(w.Day)
		c.maintenance = append(c.maintenance, maintenance{day: day, start: w.Start, end: w.End})
	}
	return c, nil
}

// Location returns the calendar timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// In returns a copy of the calendar evaluating in the named timezone.
func (c *Calendar) In(timezone string) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, riskerr.InvalidParameter("timezone", "unknown timezone %q", timezone)
	}
	cp := *c
	cp.loc = loc
	return &cp, nil
}

// Classify returns the period and multiplier for t.
func (c *Calendar) Classify(t time.Time) (Period, float64) {
	local := t.In(c.loc)
	hour := float64(local.Hour()) + float64(local.Minute())/60
	m := c.config.Multipliers

	for _, w := range c.maintenance {
		if local.Weekday() == w.day && hour >= float64(w.start) && hour < float64(w.end) {
			return PeriodMaintenance, clampMultiplier(m.Maintenance)
		}
	}
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return PeriodWeekend, clampMultiplier(m.Weekend)
	}
	for _, r := range c.config.PeakHours {
		if r.Contains(hour) {
			return PeriodPeak, clampMultiplier(m.Peak)
		}
	}
	biz := c.config.BusinessHours
	if biz.Contains(hour) {
		return PeriodBusiness, clampMultiplier(m.Business)
	}
	for _, r := range c.config.ShoulderHours {
		if !r.Contains(hour) {
			continue
		}
		frac := (hour - float64(r.Start)) / float64(r.End-r.Start)
		if r.Start >= biz.End {
			// Ramping down after business hours.
			frac = 1 - frac
		}
		return PeriodShoulder, clampMultiplier(m.OffHours + (m.Business-m.OffHours)*frac)
	}
	return PeriodOffHours, clampMultiplier(m.OffHours)
}

// Adjust scales base by the multiplier at t. The adjusted score is clamped
// to [0,100].
func (c *Calendar) Adjust(base float64, t time.Time) Adjustment {
	period, mult := c.Classify(t)
	adjusted := math.Max(0, math.Min(100, base*mult))
	return Adjustment{
		BaseScore:      base,
		AdjustedScore:  math.Round(adjusted*100) / 100,
		Multiplier:     round(mult),
		Period:         period,
		EvaluatedAt:    t.In(c.loc),
		Recommendation: recommendation(period, adjusted),
	}
}

// OptimalWindows scans hourly slots from the first full hour after now for
// horizonDays days and returns the lowest-multiplier slots, earliest first
// among equals. horizonDays 0 uses the default; values above the maximum
// are clamped.
func (c *Calendar) OptimalWindows(now time.Time, horizonDays int) ([]Window, error) {
	if horizonDays < 0 {
		return nil, riskerr.InvalidParameter("horizon_days", "must be >= 0, got %d", horizonDays)
	}
	if horizonDays == 0 {
		horizonDays = c.config.DefaultHorizonDays
	}
	if horizonDays > c.config.MaxHorizonDays {
		horizonDays = c.config.MaxHorizonDays
	}

	local := now.In(c.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, c.loc)
	if !start.Equal(local) {
		start = start.Add(time.Hour)
	}

	slots := horizonDays * 24
	windows := make([]Window, 0, slots)
	for i := 0; i < slots; i++ {
		s := start.Add(time.Duration(i) * time.Hour)
		period, mult := c.Classify(s)
		windows = append(windows, Window{
			Start:          s,
			End:            s.Add(time.Hour),
			Multiplier:     round(mult),
			Period:         period,
			Recommendation: windowRecommendation(period),
		})
	}

	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].Multiplier != windows[j].Multiplier {
			return windows[i].Multiplier < windows[j].Multiplier
		}
		return windows[i].Start.Before(windows[j].Start)
	})
	if n := c.config.TopWindows; n > 0 && len(windows) > n {
		windows = windows[:n]
	}
	return windows, nil
}

func clampMultiplier(v float64) float64 {
	return math.Max(MinMultiplier, math.Min(MaxMultiplier, v))
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func recommendation(p Period, adjusted float64) string {
	var msg string
	switch p {
	case PeriodMaintenance:
		msg = "Inside a maintenance window: preferred time for changes"
	case PeriodWeekend, PeriodOffHours:
		msg = "Low-traffic period: acceptable for changes with a rollback plan"
	case PeriodShoulder:
		msg = "Traffic is ramping; prefer an off-hours window for risky changes"
	case PeriodBusiness:
		msg = "Business hours: defer non-urgent changes to a low-traffic window"
	case PeriodPeak:
		msg = "Peak traffic: avoid changes unless they fix an active incident"
	}
	if adjusted >= 75 {
		msg += "; adjusted risk is critical, require an approved change plan"
	}
	return msg
}

func windowRecommendation(p Period) string {
	switch p {
	case PeriodMaintenance:
		return "Recommended: scheduled maintenance window"
	case PeriodWeekend:
		return "Good: weekend, low traffic"
	case PeriodOffHours:
		return "Good: off-hours, low traffic"
	case PeriodShoulder:
		return "Acceptable: traffic ramping"
	}
	return "Avoid: business traffic"
}
