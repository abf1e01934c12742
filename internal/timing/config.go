package timing

import (
	"fmt"
	"strings"
	"time"
)

// HourRange is the half-open interval [Start, End) in hours of the day.
type HourRange struct {
	Start int `yaml:"start" validate:"gte=0,lte=24"`
	End   int `yaml:"end" validate:"gte=0,lte=24"`
}

// Contains reports whether the fractional hour h falls inside r.
func (r HourRange) Contains(h float64) bool {
	return h >= float64(r.Start) && h < float64(r.End)
}

// MaintenanceWindow is a recurring weekly window.
type MaintenanceWindow struct {
	Day   string `yaml:"day"`
	Start int    `yaml:"start" validate:"gte=0,lte=24"`
	End   int    `yaml:"end" validate:"gte=0,lte=24"`
}

// Multipliers per calendar period.
type Multipliers struct {
	Peak        float64 `yaml:"peak"`
	Business    float64 `yaml:"business"`
	OffHours    float64 `yaml:"off_hours"`
	Weekend     float64 `yaml:"weekend"`
	Maintenance float64 `yaml:"maintenance"`
}

// Config describes the traffic calendar.
type Config struct {
	Timezone           string              `yaml:"timezone"`
	BusinessHours      HourRange           `yaml:"business_hours"`
	PeakHours          []HourRange         `yaml:"peak_hours"`
	ShoulderHours      []HourRange         `yaml:"shoulder_hours"`
	MaintenanceWindows []MaintenanceWindow `yaml:"maintenance_windows"`
	Multipliers        Multipliers         `yaml:"multipliers"`

	DefaultHorizonDays int `yaml:"default_horizon_days" validate:"gte=1"`
	MaxHorizonDays     int `yaml:"max_horizon_days" validate:"gte=1"`
	TopWindows         int `yaml:"top_windows" validate:"gte=1"`
}

// DefaultConfig returns a UTC calendar with 09-17 business hours.
func DefaultConfig() Config {
	return Config{
		Timezone:      "UTC",
		BusinessHours: HourRange{Start: 9, End: 17},
		PeakHours: []HourRange{
			{Start: 10, End: 12},
			{Start: 14, End: 16},
		},
		ShoulderHours: []HourRange{
			{Start: 6, End: 9},
			{Start: 17, End: 21},
		},
		MaintenanceWindows: []MaintenanceWindow{
			{Day: "sunday", Start: 1, End: 5},
		},
		Multipliers: Multipliers{
			Peak:        2.0,
			Business:    1.5,
			OffHours:    0.5,
			Weekend:     0.4,
			Maintenance: 0.2,
		},
		DefaultHorizonDays: 7,
		MaxHorizonDays:     30,
		TopWindows:         10,
	}
}

// Validate checks semantic constraints the struct tags cannot express.
func (c Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timing.timezone: %w", err)
	}
	ranges := append([]HourRange{c.BusinessHours}, c.PeakHours...)
	ranges = append(ranges, c.ShoulderHours...)
	for _, r := range ranges {
		if r.Start < 0 || r.End > 24 || r.Start >= r.End {
			return fmt.Errorf("timing: invalid hour range %d-%d", r.Start, r.End)
		}
	}
	for _, w := range c.MaintenanceWindows {
		if _, err := parseWeekday(w.Day); err != nil {
			return fmt.Errorf("timing.maintenance_windows: %w", err)
		}
		if w.Start < 0 || w.End > 24 || w.Start >= w.End {
			return fmt.Errorf("timing.maintenance_windows: invalid hour range %d-%d", w.Start, w.End)
		}
	}
	m := c.Multipliers
	for name, v := range map[string]float64{
		"peak":        m.Peak,
		"business":    m.Business,
		"off_hours":   m.OffHours,
		"weekend":     m.Weekend,
		"maintenance": m.Maintenance,
	} {
		if v < MinMultiplier || v > MaxMultiplier {
			return fmt.Errorf("timing.multipliers.%s must be within [%.1f, %.1f], got %v", name, MinMultiplier, MaxMultiplier, v)
		}
	}
	if c.DefaultHorizonDays > c.MaxHorizonDays {
		return fmt.Errorf("timing.default_horizon_days must not exceed max_horizon_days")
	}
	return nil
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) || strings.EqualFold(s, d.String()[:3]) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
