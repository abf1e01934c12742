package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/riskgraph/internal/riskerr"
)

// 2024-03-06 is a Wednesday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
}

func newCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal, err := NewCalendar(DefaultConfig())
	require.NoError(t, err)
	return cal
}

func TestClassify(t *testing.T) {
	cal := newCalendar(t)
	tests := []struct {
		name   string
		at     time.Time
		period Period
		mult   float64
	}{
		{"weekday peak", at(6, 11, 0), PeriodPeak, 2.0},
		{"weekday business", at(6, 13, 0), PeriodBusiness, 1.5},
		{"morning shoulder midpoint", at(6, 7, 30), PeriodShoulder, 1.0},
		{"evening shoulder start", at(6, 17, 0), PeriodShoulder, 1.5},
		{"evening shoulder midpoint", at(6, 19, 0), PeriodShoulder, 1.0},
		{"weekday night", at(6, 23, 0), PeriodOffHours, 0.5},
		{"saturday noon", at(9, 12, 0), PeriodWeekend, 0.4},
		{"sunday 2am", at(10, 2, 0), PeriodMaintenance, 0.2},
		{"sunday 6am", at(10, 6, 0), PeriodWeekend, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			period, mult := cal.Classify(tt.at)
			assert.Equal(t, tt.period, period)
			assert.InDelta(t, tt.mult, mult, 1e-9)
		})
	}
}

func TestClassify_MultiplierBoundsForWholeWeek(t *testing.T) {
	cal := newCalendar(t)
	start := at(4, 0, 0)
	for i := 0; i < 7*24*4; i++ {
		_, mult := cal.Classify(start.Add(time.Duration(i) * 15 * time.Minute))
		assert.GreaterOrEqual(t, mult, MinMultiplier)
		assert.LessOrEqual(t, mult, MaxMultiplier)
	}
}

func TestAdjust(t *testing.T) {
	cal := newCalendar(t)

	peak := cal.Adjust(50, at(6, 11, 0))
	assert.Greater(t, peak.Multiplier, 1.0)
	assert.Equal(t, 100.0, peak.AdjustedScore)
	assert.Contains(t, peak.Recommendation, "Peak traffic")

	night := cal.Adjust(50, at(10, 2, 0))
	assert.Less(t, night.Multiplier, 0.6)
	assert.Equal(t, 10.0, night.AdjustedScore)
	assert.Equal(t, PeriodMaintenance, night.Period)

	capped := cal.Adjust(80, at(6, 11, 0))
	assert.Equal(t, 100.0, capped.AdjustedScore)
}

func TestIn_Timezone(t *testing.T) {
	cal := newCalendar(t)
	ny, err := cal.In("America/New_York")
	require.NoError(t, err)

	// 16:00 UTC is 11:00 EST.
	period, _ := ny.Classify(at(6, 16, 0))
	assert.Equal(t, PeriodPeak, period)
	period, _ = cal.Classify(at(6, 16, 0))
	assert.Equal(t, PeriodBusiness, period)

	_, err = cal.In("Mars/Olympus_Mons")
	assert.True(t, riskerr.IsKind(err, riskerr.KindInvalidParameter))
}

func TestOptimalWindows(t *testing.T) {
	cal := newCalendar(t)
	now := at(6, 12, 30)

	windows, err := cal.OptimalWindows(now, 7)
	require.NoError(t, err)
	require.Len(t, windows, 10)

	for i := 0; i < 4; i++ {
		assert.Equal(t, at(10, 1+i, 0), windows[i].Start)
		assert.Equal(t, PeriodMaintenance, windows[i].Period)
		assert.Equal(t, 0.2, windows[i].Multiplier)
	}
	assert.Equal(t, at(9, 0, 0), windows[4].Start)
	assert.Equal(t, PeriodWeekend, windows[4].Period)
	assert.Equal(t, windows[4].Start.Add(time.Hour), windows[4].End)

	for i := 1; i < len(windows); i++ {
		assert.LessOrEqual(t, windows[i-1].Multiplier, windows[i].Multiplier)
	}

	again, err := cal.OptimalWindows(now, 7)
	require.NoError(t, err)
	assert.Equal(t, windows, again)
}

func TestOptimalWindows_StartsAtNextFullHour(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopWindows = 1000
	cal, err := NewCalendar(cfg)
	require.NoError(t, err)

	windows, err := cal.OptimalWindows(at(6, 12, 30), 1)
	require.NoError(t, err)
	require.Len(t, windows, 24)
	earliest := windows[0].Start
	for _, w := range windows {
		if w.Start.Before(earliest) {
			earliest = w.Start
		}
	}
	assert.Equal(t, at(6, 13, 0), earliest)

	aligned, err := cal.OptimalWindows(at(6, 13, 0), 1)
	require.NoError(t, err)
	assert.Len(t, aligned, 24)
}

func TestOptimalWindows_Horizon(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopWindows = 10000
	cal, err := NewCalendar(cfg)
	require.NoError(t, err)

	windows, err := cal.OptimalWindows(at(6, 12, 0), 0)
	require.NoError(t, err)
	assert.Len(t, windows, 7*24)

	windows, err = cal.OptimalWindows(at(6, 12, 0), 365)
	require.NoError(t, err)
	assert.Len(t, windows, 30*24)

	_, err = cal.OptimalWindows(at(6, 12, 0), -1)
	assert.True(t, riskerr.IsKind(err, riskerr.KindInvalidParameter))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Timezone = "Nowhere/Land"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Multipliers.Peak = 3
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaintenanceWindows = []MaintenanceWindow{{Day: "funday", Start: 1, End: 2}}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaintenanceWindows = []MaintenanceWindow{{Day: "Sat", Start: 3, End: 4}}
	assert.NoError(t, cfg.Validate())
}
