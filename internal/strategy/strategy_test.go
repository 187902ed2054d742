package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestForWeekdayIsTotal(t *testing.T) {
	t.Parallel()

	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		s := ForWeekday(wd)
		assert.Positive(t, s.LookbackDays, "weekday %s", wd)
		assert.Positive(t, s.ScoreThreshold, "weekday %s", wd)
	}
}

func TestForWeekdayValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		wd   time.Weekday
		want PostingStrategy
	}{
		{time.Sunday, PostingStrategy{LookbackDays: 7, ScoreThreshold: 20, PreferRecent: true, AllowRepost: false}},
		{time.Monday, PostingStrategy{LookbackDays: 14, ScoreThreshold: 25, PreferRecent: true, AllowRepost: true}},
		{time.Tuesday, PostingStrategy{LookbackDays: 90, ScoreThreshold: 40, PreferRecent: false, AllowRepost: true}},
		{time.Wednesday, PostingStrategy{LookbackDays: 7, ScoreThreshold: 20, PreferRecent: true, AllowRepost: false}},
		{time.Thursday, PostingStrategy{LookbackDays: 14, ScoreThreshold: 25, PreferRecent: true, AllowRepost: true}},
		{time.Friday, PostingStrategy{LookbackDays: 90, ScoreThreshold: 40, PreferRecent: false, AllowRepost: true}},
		{time.Saturday, PostingStrategy{LookbackDays: 28, ScoreThreshold: 28, PreferRecent: true, AllowRepost: true}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ForWeekday(tc.wd), "weekday %s", tc.wd)
	}
}

func TestEvening(t *testing.T) {
	t.Parallel()

	june := time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC)
	s := Evening(june, Thresholds{EveningPost: 18, AdventCalendar: 10})
	assert.Equal(t, PostingStrategy{LookbackDays: 3, ScoreThreshold: 18, PreferRecent: false, AllowRepost: false}, s)
}

func TestEveningDefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	june := time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC)
	s := Evening(june, Thresholds{})
	assert.Equal(t, DefaultThresholds.EveningPost, s.ScoreThreshold)
}

func TestEveningAdventWindow(t *testing.T) {
	t.Parallel()

	th := Thresholds{EveningPost: 18, AdventCalendar: 8}

	dec1 := time.Date(2025, time.December, 1, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, 8, Evening(dec1, th).ScoreThreshold)

	dec25 := time.Date(2025, time.December, 25, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, 8, Evening(dec25, th).ScoreThreshold)

	dec26 := time.Date(2025, time.December, 26, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, 18, Evening(dec26, th).ScoreThreshold)

	nov30 := time.Date(2025, time.November, 30, 18, 0, 0, 0, time.UTC)
	assert.False(t, IsAdventCalendarPeriod(nov30))
}
