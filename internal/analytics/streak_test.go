package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func day(today time.Time, daysAgo int) time.Time {
	return today.AddDate(0, 0, -daysAgo)
}

func TestStreakEmptyHistory(t *testing.T) {
	assert.Equal(t, 0, ConsecutiveDayStreak(nil, time.Now()))
}

func TestStreakStopsAtFirstGap(t *testing.T) {
	today := time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC)
	redemptions := []time.Time{
		day(today, 0),
		day(today, 1),
		day(today, 2),
		day(today, 4), // excluded by the gap at day 3
	}
	assert.Equal(t, 3, ConsecutiveDayStreak(redemptions, today))
}

func TestStreakBrokenWhenLastRedemptionIsOld(t *testing.T) {
	today := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	redemptions := []time.Time{day(today, 3)}
	assert.Equal(t, 0, ConsecutiveDayStreak(redemptions, today))
}

func TestStreakAcceptsYesterdayAsAnchor(t *testing.T) {
	today := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	redemptions := []time.Time{day(today, 1), day(today, 2)}
	assert.Equal(t, 2, ConsecutiveDayStreak(redemptions, today))
}

func TestStreakDeduplicatesSameDay(t *testing.T) {
	today := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	redemptions := []time.Time{
		today.Add(-2 * time.Hour),
		today.Add(-5 * time.Hour),
		day(today, 1),
	}
	assert.Equal(t, 2, ConsecutiveDayStreak(redemptions, today))
}

func TestStreakProperties(t *testing.T) {
	today := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	rapid.Check(t, func(t *rapid.T) {
		// A run of n consecutive days ending today, preceded by a gap and
		// some older noise, always yields exactly n.
		n := rapid.IntRange(1, 30).Draw(t, "run")
		gap := rapid.IntRange(2, 10).Draw(t, "gap")
		noise := rapid.IntRange(0, 5).Draw(t, "noise")

		var redemptions []time.Time
		for i := 0; i < n; i++ {
			redemptions = append(redemptions, day(today, i).Add(-time.Duration(i)*time.Minute))
		}
		for i := 0; i < noise; i++ {
			redemptions = append(redemptions, day(today, n+gap+i))
		}

		if got := ConsecutiveDayStreak(redemptions, today); got != n {
			t.Fatalf("expected streak %d, got %d", n, got)
		}
	})
}
