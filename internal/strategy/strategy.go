// Package strategy defines the per-weekday posting strategies and the
// evening variant that parameterize each pipeline run.
package strategy

import "time"

// PostingStrategy is the value object selected fresh on every run. It is
// never persisted.
type PostingStrategy struct {
	// LookbackDays bounds how far back candidate articles may date.
	LookbackDays int
	// ScoreThreshold is the minimum meta score a candidate must reach.
	ScoreThreshold int
	// PreferRecent sorts candidates newest-first when true, oldest-first
	// otherwise.
	PreferRecent bool
	// AllowRepost permits re-publishing an article once its cooldown has
	// elapsed.
	AllowRepost bool
}

// weekdayStrategies covers every weekday; freshness-first days alternate
// with quality-first days that accept much older articles.
var weekdayStrategies = map[time.Weekday]PostingStrategy{
	time.Sunday:    {LookbackDays: 7, ScoreThreshold: 20, PreferRecent: true, AllowRepost: false},
	time.Monday:    {LookbackDays: 14, ScoreThreshold: 25, PreferRecent: true, AllowRepost: true},
	time.Tuesday:   {LookbackDays: 90, ScoreThreshold: 40, PreferRecent: false, AllowRepost: true},
	time.Wednesday: {LookbackDays: 7, ScoreThreshold: 20, PreferRecent: true, AllowRepost: false},
	time.Thursday:  {LookbackDays: 14, ScoreThreshold: 25, PreferRecent: true, AllowRepost: true},
	time.Friday:    {LookbackDays: 90, ScoreThreshold: 40, PreferRecent: false, AllowRepost: true},
	time.Saturday:  {LookbackDays: 28, ScoreThreshold: 28, PreferRecent: true, AllowRepost: true},
}

// Thresholds carries the configurable score thresholds for the evening
// run and its promotional-calendar override.
type Thresholds struct {
	EveningPost    int
	AdventCalendar int
}

// DefaultThresholds mirror the deployment defaults.
var DefaultThresholds = Thresholds{EveningPost: 15, AdventCalendar: 10}

// ForWeekday resolves the strategy for a weekday. Total over all seven
// weekdays.
func ForWeekday(wd time.Weekday) PostingStrategy {
	return weekdayStrategies[wd]
}

// Evening returns the strategy for the second daily run: a short 3-day
// lookback sorted oldest-first so simultaneous same-day publications are
// not missed, with a lower threshold during the advent-calendar window.
func Evening(now time.Time, th Thresholds) PostingStrategy {
	threshold := th.EveningPost
	if threshold <= 0 {
		threshold = DefaultThresholds.EveningPost
	}
	if IsAdventCalendarPeriod(now) {
		threshold = th.AdventCalendar
		if threshold <= 0 {
			threshold = DefaultThresholds.AdventCalendar
		}
	}

	return PostingStrategy{
		LookbackDays:   3,
		ScoreThreshold: threshold,
		PreferRecent:   false,
		AllowRepost:    false,
	}
}

// IsAdventCalendarPeriod reports whether now falls in the December 1-25
// promotional window. The caller passes a time already in the fixed civil
// timezone.
func IsAdventCalendarPeriod(now time.Time) bool {
	return now.Month() == time.December && now.Day() >= 1 && now.Day() <= 25
}
